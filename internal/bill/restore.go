package bill

import (
	"strings"
	"time"
)

// EntityData is the plain form of an Entity used by persistence.
type EntityData struct {
	Session                  string
	ID                       string
	Title                    string
	Classification           string
	Sponsor                  string
	SponsorAffiliation       string
	HasSpecialRecommendation bool
	SpecialAssentDate        *time.Time
	LastActivityDate         *time.Time
	PublicationCount         int
	CurrentStage             Stage
	LastChangedAt            time.Time
	Active                   bool
	DiedOnOrderPaper         bool
	History                  []SnapshotData
}

// Data returns the entity's fields for persistence.
func (e *Entity) Data() EntityData {
	d := EntityData{
		Session:                  e.session,
		ID:                       e.id,
		Title:                    e.title,
		Classification:           e.classification,
		Sponsor:                  e.sponsor,
		SponsorAffiliation:       e.sponsorAffiliation,
		HasSpecialRecommendation: e.hasSpecialRecommendation,
		SpecialAssentDate:        copyTime(e.specialAssentDate),
		LastActivityDate:         copyTime(e.lastActivityDate),
		PublicationCount:         e.publicationCount,
		CurrentStage:             e.currentStage,
		LastChangedAt:            e.lastChangedAt,
		Active:                   e.active,
		DiedOnOrderPaper:         e.diedOnOrderPaper,
		History:                  make([]SnapshotData, len(e.history)),
	}
	for i, s := range e.history {
		d.History[i] = s.Data()
	}
	return d
}

// Restore rebuilds an Entity from persisted data. Derived fields missing from
// older files are recomputed: classification from id and title, the current
// stage from the last graded snapshot, lastChangedAt from the last snapshot.
func Restore(d EntityData) *Entity {
	e := &Entity{
		session:                  strings.TrimSpace(d.Session),
		id:                       strings.TrimSpace(d.ID),
		title:                    d.Title,
		classification:           d.Classification,
		sponsor:                  d.Sponsor,
		sponsorAffiliation:       d.SponsorAffiliation,
		hasSpecialRecommendation: d.HasSpecialRecommendation,
		specialAssentDate:        copyTime(d.SpecialAssentDate),
		lastActivityDate:         copyTime(d.LastActivityDate),
		publicationCount:         max(d.PublicationCount, 0),
		currentStage:             d.CurrentStage,
		lastChangedAt:            d.LastChangedAt,
		active:                   d.Active,
		diedOnOrderPaper:         d.DiedOnOrderPaper,
		history:                  make([]Snapshot, 0, len(d.History)),
	}
	for _, s := range d.History {
		e.history = append(e.history, NewSnapshot(s))
	}
	if e.classification == "" {
		e.classification = Classify(e.id, e.title)
	}
	if last, ok := e.Latest(); ok {
		if last.Stage() != "" {
			e.currentStage = last.Stage()
		}
		if e.lastChangedAt.IsZero() {
			e.lastChangedAt = last.Timestamp()
		}
	}
	if e.currentStage == "" {
		e.currentStage = StageUnknown
	}
	return e
}
