// Package retry implements the backoff used by outbound fetches.
package retry

import (
	"time"

	"git.home.luguber.info/inful/legistrack/internal/config"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
)

// rateLimitMultiplier stretches the backoff when the remote asked us to slow
// down without saying for how long.
const rateLimitMultiplier = 3

// Policy is the per-request retry schedule. The tracker's cycle-level
// cooldown sits above it; a request that exhausts MaxRetries fails the cycle.
type Policy struct {
	Mode       config.RetryBackoffMode
	Initial    time.Duration
	Max        time.Duration
	MaxRetries int
}

// DefaultPolicy is linear, 1s initial, 30s cap, 2 retries.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffLinear, Initial: time.Second, Max: 30 * time.Second, MaxRetries: 2}
}

// NewPolicy builds a policy from the legisinfo config fields. Zero or unknown
// values fall back to DefaultPolicy; Initial is clamped to Max.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDelay time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDelay > 0 {
		p.Max = maxDelay
	}
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	}
	p.Initial = min(p.Initial, p.Max)
	return p
}

// Delay returns the wait before retry n (first retry is 1).
func (p Policy) Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case config.RetryBackoffFixed:
		d = p.Initial
	case config.RetryBackoffExponential:
		d = p.Initial << min(n-1, 30)
	default:
		d = time.Duration(n) * p.Initial
	}
	return min(d, p.Max)
}

// DelayFor returns the wait before retry n after err. A server-supplied
// Retry-After wins, capped at Max; a bare rate limit stretches the backoff.
func (p Policy) DelayFor(n int, err *ferrors.ClassifiedError) time.Duration {
	d := p.Delay(n)
	if err == nil || err.RetryStrategy() != ferrors.RetryRateLimit {
		return d
	}
	if hint, ok := err.RetryAfter(); ok {
		return min(hint, p.Max)
	}
	return min(d*rateLimitMultiplier, p.Max)
}
