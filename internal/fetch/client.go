package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/logfields"
	"git.home.luguber.info/inful/legistrack/internal/retry"
)

// Options configures a Client.
type Options struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	RespectRobots     bool
	CacheTTL          time.Duration // zero disables the response cache
	MaxBodyBytes      int64
	Retry             retry.Policy
	Logger            *slog.Logger
	HTTPClient        *http.Client // overrides Timeout when set
}

// Client performs GET requests.
type Client struct {
	http      *http.Client
	userAgent string
	maxBytes  int64
	limiter   *Limiter
	robots    *robotsGate
	cache     *gocache.Cache
	cacheTTL  time.Duration
	policy    retry.Policy
	logger    *slog.Logger
}

// New builds a Client from opts.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		}
	}
	maxBytes := opts.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		http:      hc,
		userAgent: opts.UserAgent,
		maxBytes:  maxBytes,
		limiter:   NewLimiter(opts.RequestsPerSecond, 1),
		cacheTTL:  opts.CacheTTL,
		policy:    opts.Retry,
		logger:    logger,
	}
	if opts.RespectRobots {
		c.robots = newRobotsGate(hc, opts.UserAgent)
	}
	if opts.CacheTTL > 0 {
		c.cache = gocache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return c
}

// Get fetches rawURL. When cacheable is set and the cache is enabled, a
// previous successful body is returned without a request. A 404 yields a
// not_found error; other failures are transport errors.
func (c *Client) Get(ctx context.Context, rawURL string, cacheable bool) ([]byte, error) {
	if cacheable && c.cache != nil {
		if v, ok := c.cache.Get(rawURL); ok {
			return v.([]byte), nil
		}
	}
	if c.robots != nil && !c.robots.allowed(ctx, rawURL) {
		return nil, ferrors.TransportError("disallowed by robots.txt").
			WithRetry(ferrors.RetryNever).
			WithContext("url", rawURL).
			Build()
	}

	body, err := retry.Do(ctx, c.policy, c.logger, "fetch", func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, rawURL)
	})
	if err != nil {
		return nil, err
	}
	if cacheable && c.cache != nil {
		c.cache.Set(rawURL, body, c.cacheTTL)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, rawURL); err != nil {
		return nil, ferrors.TransportError("rate limiter").WithCause(err).WithRetry(ferrors.RetryNever).Build()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, ferrors.ValidationError("invalid request URL").WithCause(err).WithContext("url", rawURL).Build()
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/xml,text/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ferrors.TransportError("request failed").WithCause(err).WithContext("url", rawURL).Build()
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ferrors.NotFoundError("resource not found").WithContext("url", rawURL).Build()
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ferrors.TransportError("rate limited by server").
			RetryAfter(parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())).
			WithContext("url", rawURL).Build()
	case resp.StatusCode == http.StatusServiceUnavailable && resp.Header.Get("Retry-After") != "":
		return nil, ferrors.TransportError(fmt.Sprintf("server error: %s", resp.Status)).
			RetryAfter(parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())).
			WithContext("url", rawURL).WithContext("status", resp.StatusCode).Build()
	case resp.StatusCode >= 500:
		return nil, ferrors.TransportError(fmt.Sprintf("server error: %s", resp.Status)).
			WithContext("url", rawURL).WithContext("status", resp.StatusCode).Build()
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, ferrors.TransportError(fmt.Sprintf("unexpected status: %s", resp.Status)).
			WithRetry(ferrors.RetryNever).
			WithContext("url", rawURL).WithContext("status", resp.StatusCode).Build()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, ferrors.TransportError("read body").WithCause(err).WithContext("url", rawURL).Build()
	}
	c.logger.Debug("Fetched", logfields.URL(rawURL), logfields.Count(len(body)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return body, nil
}

// parseRetryAfter accepts delta-seconds or an HTTP date. Anything else is zero.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(at.Sub(now), 0)
	}
	return 0
}
