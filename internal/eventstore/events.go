package eventstore

import (
	"encoding/json"
	"time"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
)

// Event type names.
const (
	TypeCycleStarted   = "CycleStarted"
	TypeCycleCompleted = "CycleCompleted"
	TypeCycleFailed    = "CycleFailed"
	TypeEntityChanged  = "EntityChanged"
	TypeEntityRetired  = "EntityRetired"
)

// CycleStarted is recorded when a poll or backfill begins.
type CycleStarted struct {
	Mode       string   `json:"mode"` // "poll" or "backfill"
	Partitions []string `json:"partitions,omitempty"`
}

// CycleCompleted is recorded after a cycle persisted its results.
type CycleCompleted struct {
	Mode       string `json:"mode"`
	New        int    `json:"new"`
	Changed    int    `json:"changed"`
	Unchanged  int    `json:"unchanged"`
	Skipped    int    `json:"skipped"`
	Retired    int    `json:"retired"`
	DurationMS int64  `json:"duration_ms"`
}

// CycleFailed is recorded when a fetch or save failed.
type CycleFailed struct {
	Mode  string `json:"mode"`
	Phase string `json:"phase"`
	Error string `json:"error"`
}

// EntityChanged is recorded for every appended snapshot.
type EntityChanged struct {
	Kind       string    `json:"kind"`
	Session    string    `json:"session"`
	ID         string    `json:"id"`
	Title      string    `json:"title,omitempty"`
	FromStage  string    `json:"from_stage,omitempty"`
	ToStage    string    `json:"to_stage"`
	StatusText string    `json:"status_text"`
	Chamber    string    `json:"chamber,omitempty"`
	At         time.Time `json:"at"`
}

// EntityRetired is recorded when a bill died on the order paper.
type EntityRetired struct {
	Session string `json:"session"`
	ID      string `json:"id"`
}

// Encode marshals an event payload.
func Encode(eventType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, ferrors.PersistenceError("failed to marshal event payload").
			WithCause(err).
			WithContext("event_type", eventType).
			Build()
	}
	return data, nil
}

// Decode unmarshals an event payload into v.
func Decode(e Event, v any) error {
	if err := json.Unmarshal(e.Payload(), v); err != nil {
		return ferrors.PersistenceError("failed to unmarshal event payload").
			WithCause(err).
			WithContext("event_type", e.Type()).
			WithContext("event_id", e.ID()).
			Build()
	}
	return nil
}
