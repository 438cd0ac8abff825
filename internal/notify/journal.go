package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"git.home.luguber.info/inful/legistrack/internal/eventstore"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
)

var timeNow = time.Now

// Journal records cycles and changes in the change journal. When Projection
// is set, appended events are folded into it as well.
type Journal struct {
	Store      eventstore.Store
	Projection *eventstore.CycleHistoryProjection
	Logger     *slog.Logger
}

func (j *Journal) Notify(ctx context.Context, batch Batch) error {
	for _, c := range batch.Changes {
		if err := j.append(ctx, batch.CycleID, c.Key, eventstore.TypeEntityChanged, eventstore.EntityChanged{
			Kind:       string(c.Kind),
			Session:    c.Session,
			ID:         c.ID,
			Title:      c.Title,
			FromStage:  string(c.FromStage),
			ToStage:    string(c.ToStage),
			StatusText: c.StatusText,
			Chamber:    c.Chamber,
			At:         c.At,
		}); err != nil {
			return err
		}
	}
	for _, key := range batch.Retired {
		session, id, _ := strings.Cut(key, "/")
		if err := j.append(ctx, batch.CycleID, key, eventstore.TypeEntityRetired, eventstore.EntityRetired{
			Session: session,
			ID:      id,
		}); err != nil {
			return err
		}
	}
	return j.append(ctx, batch.CycleID, "", eventstore.TypeCycleCompleted, eventstore.CycleCompleted{
		Mode:       string(batch.Mode),
		New:        batch.New,
		Changed:    batch.Changed,
		Unchanged:  batch.Unchanged,
		Skipped:    batch.Skipped,
		Retired:    len(batch.Retired),
		DurationMS: batch.FinishedAt.Sub(batch.StartedAt).Milliseconds(),
	})
}

func (j *Journal) CycleStarted(ctx context.Context, cycleID string, mode Mode, partitions []string) {
	j.logFailure(j.append(ctx, cycleID, "", eventstore.TypeCycleStarted, eventstore.CycleStarted{
		Mode:       string(mode),
		Partitions: partitions,
	}))
}

func (j *Journal) CycleFailed(ctx context.Context, cycleID string, mode Mode, phase string, err error) {
	j.logFailure(j.append(ctx, cycleID, "", eventstore.TypeCycleFailed, eventstore.CycleFailed{
		Mode:  string(mode),
		Phase: phase,
		Error: errString(err),
	}))
}

func (j *Journal) append(ctx context.Context, cycleID, key, eventType string, payload any) error {
	data, err := eventstore.Encode(eventType, payload)
	if err != nil {
		return err
	}
	if err := j.Store.Append(ctx, cycleID, key, eventType, data, nil); err != nil {
		return err
	}
	if j.Projection != nil {
		j.Projection.Apply(&eventstore.BaseEvent{
			EventCycleID:   cycleID,
			EventKey:       key,
			EventType:      eventType,
			EventTimestamp: timeNow(),
			EventPayload:   data,
		})
	}
	return nil
}

func (j *Journal) logFailure(err error) {
	if err == nil {
		return
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ferrors.Log(context.Background(), logger, "Change journal write failed", err)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
