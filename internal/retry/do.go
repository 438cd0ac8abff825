package retry

import (
	"context"
	"log/slog"
	"time"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
)

// Do runs fn until it succeeds, returns an error that is not retryable, the
// policy's retries are exhausted, or ctx is done. Only classified errors that
// report CanRetry are retried.
func Do[T any](ctx context.Context, pol Policy, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var zero T
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying operation", slog.String("operation", op), slog.Int("attempt", attempt))
		}
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		ce, ok := ferrors.AsClassified(err)
		if !ok || !ce.CanRetry() || attempt >= pol.MaxRetries {
			return zero, err
		}

		delay := pol.DelayFor(attempt+1, ce)
		logger.Debug("Backing off", slog.String("operation", op), slog.Duration("delay", delay))
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
