package eventstore

import (
	"context"
	"time"
)

// Store persists and retrieves journal events.
type Store interface {
	// Append adds a new event to the journal. key may be empty.
	Append(ctx context.Context, cycleID, key, eventType string, payload []byte, metadata map[string]string) error

	// GetByCycle retrieves all events for one tracker cycle.
	GetByCycle(ctx context.Context, cycleID string) ([]Event, error)

	// GetByKey retrieves all events for one entity, oldest first.
	GetByKey(ctx context.Context, key string) ([]Event, error)

	// GetRange retrieves events recorded within [start, end].
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// Close closes the store and releases resources.
	Close() error
}
