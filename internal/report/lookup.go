package report

import (
	"time"

	"git.home.luguber.info/inful/legistrack/internal/bill"
)

// HistoryEntry is one snapshot in a BillView.
type HistoryEntry struct {
	Timestamp  time.Time  `json:"timestamp"`
	StatusText string     `json:"status_text"`
	Chamber    string     `json:"chamber"`
	Stage      bill.Stage `json:"stage"`
	Amended    bool       `json:"amended,omitempty"`
	SourceURL  string     `json:"source_url,omitempty"`
}

// BillView is the lookup representation of one bill.
type BillView struct {
	Key                      string         `json:"key"`
	Session                  string         `json:"session"`
	ID                       string         `json:"id"`
	Title                    string         `json:"title"`
	Classification           string         `json:"classification"`
	Sponsor                  string         `json:"sponsor,omitempty"`
	SponsorAffiliation       string         `json:"sponsor_affiliation,omitempty"`
	HasSpecialRecommendation bool           `json:"has_special_recommendation"`
	Stage                    bill.Stage     `json:"stage"`
	StageLabel               string         `json:"stage_label"`
	Active                   bool           `json:"active"`
	DiedOnOrderPaper         bool           `json:"died_on_order_paper"`
	PublicationCount         int            `json:"publication_count"`
	AssentDate               *time.Time     `json:"assent_date,omitempty"`
	DaysSinceAssent          *int           `json:"days_since_assent,omitempty"`
	LastActivity             *time.Time     `json:"last_activity,omitempty"`
	DaysSinceActivity        *int           `json:"days_since_activity,omitempty"`
	LastChangedAt            time.Time      `json:"last_changed_at"`
	History                  []HistoryEntry `json:"history"`
}

// View builds the lookup representation of e as of now.
func View(e *bill.Entity, now time.Time) BillView {
	v := BillView{
		Key:                      e.Key(),
		Session:                  e.Session(),
		ID:                       e.ID(),
		Title:                    e.Title(),
		Classification:           e.Classification(),
		Sponsor:                  e.Sponsor(),
		SponsorAffiliation:       e.SponsorAffiliation(),
		HasSpecialRecommendation: e.HasSpecialRecommendation(),
		Stage:                    e.CurrentStage(),
		StageLabel:               e.CurrentStage().Label(),
		Active:                   e.Active(),
		DiedOnOrderPaper:         e.DiedOnOrderPaper(),
		PublicationCount:         e.PublicationCount(),
		AssentDate:               e.SpecialAssentDate(),
		LastActivity:             e.LastActivityDate(),
		LastChangedAt:            e.LastChangedAt(),
	}
	v.DaysSinceAssent = daysSince(v.AssentDate, now)
	v.DaysSinceActivity = daysSince(v.LastActivity, now)
	for _, s := range e.History() {
		v.History = append(v.History, HistoryEntry{
			Timestamp:  s.Timestamp(),
			StatusText: s.StatusText(),
			Chamber:    s.Chamber(),
			Stage:      s.Stage(),
			Amended:    s.Amended(),
			SourceURL:  s.SourceURL(),
		})
	}
	return v
}

// Finder is the part of the state store a lookup needs.
type Finder interface {
	FindByID(id string) []*bill.Entity
	GetEntity(session, id string) (*bill.Entity, bool)
}

// Lookup returns every bill with the given id, newest session first. When
// session is set only that session is considered.
func Lookup(f Finder, session, id string, now time.Time) []BillView {
	if session != "" {
		e, ok := f.GetEntity(session, id)
		if !ok {
			return nil
		}
		return []BillView{View(e, now)}
	}
	var out []BillView
	for _, e := range f.FindByID(id) {
		out = append(out, View(e, now))
	}
	return out
}

// daysSince counts whole calendar days from t's date to now.
func daysSince(t *time.Time, now time.Time) *int {
	if t == nil {
		return nil
	}
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	d := int(to.Sub(from).Hours() / 24)
	return &d
}
