package eventstore

import (
	"bytes"
	"testing"
	"time"
)

const testCycleID = "cycle-1"

func newMemoryStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestJournalAppendAndRetrieve(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()
	payload := []byte(`{"kind":"stage"}`)

	if err := store.Append(ctx, testCycleID, "44-1/C-11", TypeEntityChanged, payload, map[string]string{"source": "poll"}); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}

	events, err := store.GetByCycle(ctx, testCycleID)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Key() != "44-1/C-11" {
		t.Errorf("expected key 44-1/C-11, got %s", e.Key())
	}
	if e.Type() != TypeEntityChanged {
		t.Errorf("expected type %s, got %s", TypeEntityChanged, e.Type())
	}
	if !bytes.Equal(e.Payload(), payload) {
		t.Errorf("expected payload %s, got %s", payload, e.Payload())
	}
	if e.Metadata()["source"] != "poll" {
		t.Errorf("expected metadata source=poll, got %v", e.Metadata())
	}
}

func TestJournalGetByKeyAndRange(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	_ = store.Append(ctx, "c1", "44-1/C-1", TypeEntityChanged, nil, nil)
	_ = store.Append(ctx, "c1", "44-1/C-2", TypeEntityChanged, nil, nil)
	_ = store.Append(ctx, "c2", "44-1/C-1", TypeEntityChanged, nil, nil)

	byKey, err := store.GetByKey(ctx, "44-1/C-1")
	if err != nil {
		t.Fatalf("failed to query by key: %v", err)
	}
	if len(byKey) != 2 || byKey[0].CycleID() != "c1" || byKey[1].CycleID() != "c2" {
		t.Fatalf("unexpected events for key: %+v", byKey)
	}

	ranged, err := store.GetRange(ctx, base.Add(2*time.Minute), base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("failed to get range: %v", err)
	}
	if len(ranged) != 2 {
		t.Errorf("expected 2 events in range, got %d", len(ranged))
	}
	if !ranged[0].Timestamp().Equal(base.Add(2 * time.Minute)) {
		t.Errorf("unexpected timestamp %v", ranged[0].Timestamp())
	}
}
