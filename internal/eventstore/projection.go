package eventstore

import (
	"context"
	"slices"
	"sync"
	"time"
)

const (
	cycleStatusRunning   = "running"
	cycleStatusCompleted = "completed"
	cycleStatusFailed    = "failed"
)

// CycleSummary is a read model of one tracker cycle.
type CycleSummary struct {
	CycleID     string        `json:"cycle_id"`
	Mode        string        `json:"mode"`
	Status      string        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	New         int           `json:"new"`
	Changed     int           `json:"changed"`
	Retired     int           `json:"retired"`
	Changes     int           `json:"changes"` // EntityChanged events seen
	ErrorPhase  string        `json:"error_phase,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// CycleHistoryProjection keeps recent cycle summaries rebuilt from the journal.
type CycleHistoryProjection struct {
	mu       sync.RWMutex
	store    Store
	cycles   map[string]*CycleSummary
	history  []*CycleSummary // finished cycles, newest first
	maxSize  int
	lastSync time.Time
}

// NewCycleHistoryProjection creates a projection backed by store.
func NewCycleHistoryProjection(store Store, maxHistorySize int) *CycleHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &CycleHistoryProjection{
		store:   store,
		cycles:  make(map[string]*CycleSummary),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all journal events.
func (p *CycleHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cycles = make(map[string]*CycleSummary)
	p.history = nil
	for _, e := range events {
		p.applyLocked(e)
	}
	slices.SortStableFunc(p.history, func(a, b *CycleSummary) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	p.lastSync = time.Now()
	return nil
}

// Apply folds a single event into the projection.
func (p *CycleHistoryProjection) Apply(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(e)
}

func (p *CycleHistoryProjection) applyLocked(e Event) {
	id := e.CycleID()
	if id == "" {
		return
	}
	summary, ok := p.cycles[id]
	if !ok {
		summary = &CycleSummary{CycleID: id, Status: cycleStatusRunning, StartedAt: e.Timestamp()}
		p.cycles[id] = summary
	}

	switch e.Type() {
	case TypeCycleStarted:
		var payload CycleStarted
		if Decode(e, &payload) == nil {
			summary.Mode = payload.Mode
		}
		summary.StartedAt = e.Timestamp()
	case TypeEntityChanged:
		summary.Changes++
	case TypeCycleCompleted:
		var payload CycleCompleted
		if Decode(e, &payload) == nil {
			summary.Mode = payload.Mode
			summary.New = payload.New
			summary.Changed = payload.Changed
			summary.Retired = payload.Retired
		}
		p.finishLocked(summary, e.Timestamp(), cycleStatusCompleted)
	case TypeCycleFailed:
		var payload CycleFailed
		if Decode(e, &payload) == nil {
			summary.ErrorPhase = payload.Phase
			summary.Error = payload.Error
		}
		p.finishLocked(summary, e.Timestamp(), cycleStatusFailed)
	}
}

func (p *CycleHistoryProjection) finishLocked(summary *CycleSummary, at time.Time, status string) {
	summary.CompletedAt = &at
	summary.Duration = at.Sub(summary.StartedAt)
	summary.Status = status

	if slices.Contains(p.history, summary) {
		return
	}
	p.history = append([]*CycleSummary{summary}, p.history...)
	if len(p.history) > p.maxSize {
		for _, dropped := range p.history[p.maxSize:] {
			delete(p.cycles, dropped.CycleID)
		}
		p.history = p.history[:p.maxSize]
	}
}

// History returns finished cycles, newest first.
func (p *CycleHistoryProjection) History() []CycleSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]CycleSummary, len(p.history))
	for i, s := range p.history {
		out[i] = *s
	}
	return out
}

// Cycle returns the summary for one cycle.
func (p *CycleHistoryProjection) Cycle(id string) (CycleSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.cycles[id]
	if !ok {
		return CycleSummary{}, false
	}
	return *s, true
}

// LastCompleted returns the newest finished cycle.
func (p *CycleHistoryProjection) LastCompleted() (CycleSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.history) == 0 {
		return CycleSummary{}, false
	}
	return *p.history[0], true
}

// LastSyncTime returns when Rebuild last ran.
func (p *CycleHistoryProjection) LastSyncTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}
