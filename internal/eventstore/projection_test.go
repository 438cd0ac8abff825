package eventstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendEvent(t *testing.T, store Store, cycleID, key, eventType string, payload any) {
	t.Helper()
	data, err := Encode(eventType, payload)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), cycleID, key, eventType, data, nil))
}

func TestCycleHistoryProjection_Rebuild(t *testing.T) {
	store := newMemoryStore(t)

	appendEvent(t, store, "c1", "", TypeCycleStarted, CycleStarted{Mode: "backfill"})
	appendEvent(t, store, "c1", "44-1/C-1", TypeEntityChanged, EntityChanged{Kind: "stage"})
	appendEvent(t, store, "c1", "", TypeCycleCompleted, CycleCompleted{Mode: "backfill", New: 3, Changed: 1})
	appendEvent(t, store, "c2", "", TypeCycleStarted, CycleStarted{Mode: "poll"})
	appendEvent(t, store, "c2", "", TypeCycleFailed, CycleFailed{Mode: "poll", Phase: "fetch", Error: "timeout"})
	appendEvent(t, store, "c3", "", TypeCycleStarted, CycleStarted{Mode: "poll"})

	p := NewCycleHistoryProjection(store, 10)
	require.NoError(t, p.Rebuild(t.Context()))

	history := p.History()
	require.Len(t, history, 2)

	c1, ok := p.Cycle("c1")
	require.True(t, ok)
	assert.Equal(t, "completed", c1.Status)
	assert.Equal(t, 3, c1.New)
	assert.Equal(t, 1, c1.Changes)

	c2, ok := p.Cycle("c2")
	require.True(t, ok)
	assert.Equal(t, "failed", c2.Status)
	assert.Equal(t, "fetch", c2.ErrorPhase)

	c3, ok := p.Cycle("c3")
	require.True(t, ok)
	assert.Equal(t, "running", c3.Status)
	assert.False(t, p.LastSyncTime().IsZero())
}

func TestCycleHistoryProjection_BoundedHistory(t *testing.T) {
	store := newMemoryStore(t)
	p := NewCycleHistoryProjection(store, 2)

	for _, id := range []string{"a", "b", "c"} {
		p.Apply(&BaseEvent{EventCycleID: id, EventType: TypeCycleStarted, EventPayload: []byte(`{"mode":"poll"}`)})
		p.Apply(&BaseEvent{EventCycleID: id, EventType: TypeCycleCompleted, EventPayload: []byte(`{"mode":"poll"}`)})
	}

	history := p.History()
	require.Len(t, history, 2)
	assert.Equal(t, "c", history[0].CycleID)
	_, ok := p.Cycle("a")
	assert.False(t, ok)

	last, ok := p.LastCompleted()
	require.True(t, ok)
	assert.Equal(t, "c", last.CycleID)
}
