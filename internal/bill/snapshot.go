package bill

import "time"

// SnapshotData is the plain form of a Snapshot, used to construct one and to
// read it back for persistence.
type SnapshotData struct {
	StatusCode string // empty when the source did not supply one
	StatusText string
	Timestamp  time.Time
	Chamber    string
	SourceURL  string
	Stage      Stage // empty for legacy entries recorded before stages existed
	Amended    bool
}

// Snapshot is one observed state of a bill. The zero value is an empty snapshot;
// a Snapshot cannot be changed after NewSnapshot returns it.
type Snapshot struct {
	d SnapshotData
}

// NewSnapshot freezes d into a Snapshot.
func NewSnapshot(d SnapshotData) Snapshot {
	return Snapshot{d: d}
}

func (s Snapshot) StatusCode() string   { return s.d.StatusCode }
func (s Snapshot) StatusText() string   { return s.d.StatusText }
func (s Snapshot) Timestamp() time.Time { return s.d.Timestamp }
func (s Snapshot) Chamber() string      { return s.d.Chamber }
func (s Snapshot) SourceURL() string    { return s.d.SourceURL }
func (s Snapshot) Stage() Stage         { return s.d.Stage }
func (s Snapshot) Amended() bool        { return s.d.Amended }

// Data returns a copy of the snapshot's fields.
func (s Snapshot) Data() SnapshotData { return s.d }

// sameStatus compares the (statusCode, statusText, chamber) tuple.
func (s Snapshot) sameStatus(code, text, chamber string) bool {
	return s.d.StatusCode == code && s.d.StatusText == text && s.d.Chamber == chamber
}
