package notify

import (
	"time"

	"git.home.luguber.info/inful/legistrack/internal/bill"
)

// Mode names the kind of cycle that produced a batch.
type Mode string

const (
	ModePoll     Mode = "poll"
	ModeBackfill Mode = "backfill"
)

// Change is one appended snapshot.
type Change struct {
	Kind       bill.ChangeKind `json:"kind"`
	Key        string          `json:"key"`
	Session    string          `json:"session"`
	ID         string          `json:"id"`
	Title      string          `json:"title,omitempty"`
	FromStage  bill.Stage      `json:"from_stage,omitempty"`
	ToStage    bill.Stage      `json:"to_stage"`
	StatusText string          `json:"status_text"`
	Chamber    string          `json:"chamber,omitempty"`
	At         time.Time       `json:"at"`
}

// Batch is everything one cycle produced, delivered after it was persisted.
type Batch struct {
	CycleID    string
	Mode       Mode
	StartedAt  time.Time
	FinishedAt time.Time
	New        int
	Changed    int
	Unchanged  int
	Skipped    int
	Retired    []string // keys that died on the order paper
	Changes    []Change
}
