package notify

import (
	"context"
	"errors"
	"log/slog"

	"git.home.luguber.info/inful/legistrack/internal/bill"
	"git.home.luguber.info/inful/legistrack/internal/logfields"
)

// Notifier receives cycle results.
type Notifier interface {
	Notify(ctx context.Context, batch Batch) error
}

// CycleObserver is implemented by notifiers that also want cycle boundaries.
type CycleObserver interface {
	CycleStarted(ctx context.Context, cycleID string, mode Mode, partitions []string)
	CycleFailed(ctx context.Context, cycleID string, mode Mode, phase string, err error)
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, batch Batch) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) CycleStarted(ctx context.Context, cycleID string, mode Mode, partitions []string) {
	for _, n := range m {
		if o, ok := n.(CycleObserver); ok {
			o.CycleStarted(ctx, cycleID, mode, partitions)
		}
	}
}

func (m Multi) CycleFailed(ctx context.Context, cycleID string, mode Mode, phase string, err error) {
	for _, n := range m {
		if o, ok := n.(CycleObserver); ok {
			o.CycleFailed(ctx, cycleID, mode, phase, err)
		}
	}
}

// Log writes one line per change.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(_ context.Context, batch Batch) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, c := range batch.Changes {
		attrs := []any{
			logfields.CycleID(batch.CycleID),
			logfields.Session(c.Session),
			logfields.BillID(c.ID),
			logfields.Stage(string(c.ToStage)),
		}
		switch c.Kind {
		case bill.ChangeNew:
			logger.Info("New bill", append(attrs, slog.String("title", c.Title))...)
		case bill.ChangeStage:
			logger.Info("Stage transition", append(attrs, logfields.FromStage(string(c.FromStage)))...)
		case bill.ChangeAmendment:
			logger.Info("Bill amended", attrs...)
		default:
			logger.Info("Status changed", append(attrs, slog.String("status", c.StatusText))...)
		}
	}
	for _, key := range batch.Retired {
		logger.Info("Bill died on the order paper", logfields.Key(key))
	}
	return nil
}
