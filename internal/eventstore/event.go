package eventstore

import "time"

// Event is one journal entry.
type Event interface {
	// ID returns the journal sequence number.
	ID() int64
	// CycleID returns the tracker cycle that produced the event.
	CycleID() string
	// Key returns the entity identity key, empty for cycle-level events.
	Key() string
	// Type returns the event type name.
	Type() string
	// Timestamp returns when the event was recorded.
	Timestamp() time.Time
	// Payload returns the event data as bytes.
	Payload() []byte
	// Metadata returns optional event metadata.
	Metadata() map[string]string
}

// BaseEvent provides a default implementation of Event.
type BaseEvent struct {
	EventID        int64
	EventCycleID   string
	EventKey       string
	EventType      string
	EventTimestamp time.Time
	EventPayload   []byte
	EventMetadata  map[string]string
}

func (e *BaseEvent) ID() int64                   { return e.EventID }
func (e *BaseEvent) CycleID() string             { return e.EventCycleID }
func (e *BaseEvent) Key() string                 { return e.EventKey }
func (e *BaseEvent) Type() string                { return e.EventType }
func (e *BaseEvent) Timestamp() time.Time        { return e.EventTimestamp }
func (e *BaseEvent) Payload() []byte             { return e.EventPayload }
func (e *BaseEvent) Metadata() map[string]string { return e.EventMetadata }
