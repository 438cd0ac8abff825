package bill

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func obs(status string, at time.Time) Observation {
	return Observation{
		Session:    "44-1",
		ID:         "C-11",
		Title:      "An Act to amend the Broadcasting Act",
		StatusCode: status,
		StatusText: status,
		Chamber:    ChamberHouse,
		ObservedAt: at,
	}
}

func TestUpdateFirstObservationSeedsHistory(t *testing.T) {
	e := New("44-1", "C-11")
	c := e.Update(obs("At second reading in the House of Commons", t0), t0)

	require.True(t, c.Changed)
	require.Equal(t, ChangeNew, c.Kind)
	require.Equal(t, StageSecondReading, e.CurrentStage(), "first observation is staged where the bill is")
	require.Equal(t, "government+amending", e.Classification())
	require.Equal(t, 1, e.Len())
}

func TestUpdateIsIdempotent(t *testing.T) {
	e := New("44-1", "C-11")
	o := obs("At second reading in the House of Commons", t0)
	e.Update(o, t0)
	e.Update(obs("At consideration in committee", t0.Add(time.Hour)), t0)

	c := e.Update(obs("At consideration in committee", t0.Add(2*time.Hour)), t0)
	require.False(t, c.Changed)
	require.Equal(t, 2, e.Len())
}

func TestUpdateRepeatedObservationPastFirstReading(t *testing.T) {
	statuses := []string{
		"Royal assent received",
		"At consideration in committee in the House of Commons",
		"At report stage in the House of Commons",
		"Defeated at second reading",
		"Awaiting message",
	}
	for _, status := range statuses {
		t.Run(status, func(t *testing.T) {
			e := New("44-1", "C-11")
			o := obs(status, t0)
			o.PublicationCount = IntPtr(2)
			first := e.Update(o, t0)
			require.True(t, first.Changed)
			require.False(t, first.Snapshot.Amended(), "a first sighting is never an amendment")
			stage := e.CurrentStage()

			o.ObservedAt = t0.Add(4 * time.Hour)
			again := e.Update(o, t0)
			require.False(t, again.Changed)
			require.Equal(t, stage, e.CurrentStage())
			require.Equal(t, 1, e.Len())
		})
	}
}

func TestUpdateFirstObservationWithAssentDate(t *testing.T) {
	e := New("44-1", "C-11")
	o := obs("Awaiting message", t0)
	assent := t0.AddDate(0, 0, -1)
	o.SpecialAssentDate = &assent

	e.Update(o, t0)
	require.Equal(t, StageFinalAssent, e.CurrentStage())
	require.False(t, e.Update(o, t0).Changed)
}

func TestUpdateMetadataOnlyIsNotAChange(t *testing.T) {
	e := New("44-1", "C-11")
	e.Update(obs("Introduced", t0), t0)

	o := obs("Introduced", t0.Add(time.Hour))
	o.Title = "An Act respecting online streaming"
	o.Sponsor = "Minister of Canadian Heritage"
	c := e.Update(o, t0)

	require.False(t, c.Changed)
	require.Equal(t, 1, e.Len())
	require.Equal(t, "Minister of Canadian Heritage", e.Sponsor())
	require.Equal(t, "government+new-act", e.Classification())
}

func TestUpdateAmendmentPrecision(t *testing.T) {
	seed := func() *Entity {
		e := New("44-1", "C-11")
		o := obs("At consideration in committee", t0)
		o.PublicationCount = IntPtr(2)
		e.Update(o, t0)
		return e
	}

	e := seed()
	o := obs("Report stage", t0.Add(time.Hour))
	o.PublicationCount = IntPtr(3)
	c := e.Update(o, t0)
	require.True(t, c.Changed)
	require.Equal(t, ChangeAmendment, c.Kind)
	require.True(t, c.Snapshot.Amended())
	require.Equal(t, 3, e.PublicationCount())

	e = seed()
	o.PublicationCount = IntPtr(2)
	c = e.Update(o, t0)
	require.True(t, c.Changed)
	require.Equal(t, ChangeStage, c.Kind)
	require.False(t, c.Snapshot.Amended())
}

func TestUpdatePublicationCountNeverDecreases(t *testing.T) {
	e := New("44-1", "C-11")
	o := obs("At consideration in committee", t0)
	o.PublicationCount = IntPtr(4)
	e.Update(o, t0)

	o = obs("Report stage", t0.Add(time.Hour))
	o.PublicationCount = IntPtr(1)
	c := e.Update(o, t0)

	require.True(t, c.Changed)
	require.False(t, c.Snapshot.Amended())
	require.Equal(t, 4, e.PublicationCount())
	require.NotEmpty(t, c.Warnings)
}

func TestUpdateTerminalStageIsMonotonic(t *testing.T) {
	e := New("44-1", "C-11")
	e.Update(obs("At third reading", t0), t0)
	e.Update(obs("Royal assent received", t0.Add(time.Hour)), t0)
	require.Equal(t, StageFinalAssent, e.CurrentStage())

	later := obs("At second reading in the Senate", t0.Add(2*time.Hour))
	later.Chamber = ChamberSenate
	c := e.Update(later, t0)

	require.True(t, c.Changed)
	require.Equal(t, ChangeStatus, c.Kind)
	require.Equal(t, StageFinalAssent, e.CurrentStage())
}

func TestUpdateChamberSwitch(t *testing.T) {
	e := New("44-1", "C-11")
	e.Update(obs("Introduced", t0), t0)
	e.Update(obs("At third reading", t0.Add(time.Hour)), t0)
	require.Equal(t, StageThirdReading, e.CurrentStage())

	o := obs("At first reading in the Senate", t0.Add(2*time.Hour))
	o.Chamber = ChamberSenate
	c := e.Update(o, t0)

	require.Equal(t, StageSecondChamber, e.CurrentStage())
	require.Equal(t, StageThirdReading, c.FromStage)
}

func TestUpdateHistoryTimestampsNonDecreasing(t *testing.T) {
	e := New("44-1", "C-11")
	e.Update(obs("Introduced", t0), t0)
	e.Update(obs("At second reading", t0.Add(-time.Hour)), t0)

	h := e.History()
	require.Len(t, h, 2)
	require.False(t, h[1].Timestamp().Before(h[0].Timestamp()))
}

func TestUpdatePartialData(t *testing.T) {
	e := New("44-1", "C-11")
	o := obs("At consideration in committee", t0)
	o.PublicationCount = IntPtr(2)
	e.Update(o, t0)

	partial := Observation{Session: "44-1", ID: "C-11", StatusText: "Report stage", Chamber: ChamberHouse}
	c := e.Update(partial, t0.Add(time.Hour))

	require.True(t, c.Changed)
	require.Equal(t, "", e.Sponsor())
	require.Equal(t, 2, e.PublicationCount())
	require.False(t, c.Snapshot.Amended())
	require.Equal(t, t0.Add(time.Hour), c.Snapshot.Timestamp())
}

func TestHistoryIsACopy(t *testing.T) {
	e := New("44-1", "C-11")
	e.Update(obs("Introduced", t0), t0)

	h := e.History()
	h[0] = NewSnapshot(SnapshotData{StatusText: "tampered"})
	latest, ok := e.Latest()
	require.True(t, ok)
	require.Equal(t, "Introduced", latest.StatusText())
}

func TestMarkDiedOnOrderPaper(t *testing.T) {
	e := New("43-2", "C-7")
	e.Update(Observation{Session: "43-2", ID: "C-7", StatusText: "At committee", Chamber: ChamberHouse}, t0)
	require.True(t, e.MarkDiedOnOrderPaper())
	require.False(t, e.Active())
	require.True(t, e.DiedOnOrderPaper())
	require.False(t, e.MarkDiedOnOrderPaper())

	assented := New("43-2", "C-8")
	d := t0
	assented.Update(Observation{Session: "43-2", ID: "C-8", StatusText: "Royal assent", Chamber: ChamberHouse, SpecialAssentDate: &d}, t0)
	require.False(t, assented.MarkDiedOnOrderPaper())
}

func TestRestoreRoundTrip(t *testing.T) {
	e := New("44-1", "S-5")
	e.Update(Observation{Session: "44-1", ID: "S-5", Title: "An Act respecting things", StatusText: "Introduced", Chamber: ChamberSenate, ObservedAt: t0}, t0)

	r := Restore(e.Data())
	require.Equal(t, e.Key(), r.Key())
	require.Equal(t, e.CurrentStage(), r.CurrentStage())
	require.Equal(t, e.History(), r.History())
	require.True(t, r.Active())
}

func TestRestoreDerivesMissingFields(t *testing.T) {
	r := Restore(EntityData{
		Session: "44-1",
		ID:      "C-234",
		Active:  true,
		History: []SnapshotData{{StatusText: "At committee", Timestamp: t0, Stage: StageCommittee}},
	})
	require.Equal(t, "private-member", r.Classification())
	require.Equal(t, StageCommittee, r.CurrentStage())
	require.Equal(t, t0, r.LastChangedAt())
}
