package state

import (
	"time"

	"git.home.luguber.info/inful/legistrack/internal/bill"
)

// schemaVersion is bumped when fields are added to the document.
const schemaVersion = 2

type document struct {
	SchemaVersion int            `json:"schema_version,omitempty"`
	LastUpdated   string         `json:"last_updated"`
	Entities      []entityRecord `json:"entities"`

	LegacyBills []entityRecord `json:"bills,omitempty"`
}

type entityRecord struct {
	Session                  string           `json:"session"`
	ID                       string           `json:"id,omitempty"`
	Title                    string           `json:"title"`
	Classification           *string          `json:"classification"`
	CurrentStage             *string          `json:"current_stage"`
	PublicationCount         int              `json:"publication_count"`
	Sponsor                  *string          `json:"sponsor"`
	SponsorAffiliation       *string          `json:"sponsor_affiliation"`
	HasSpecialRecommendation *bool            `json:"has_special_recommendation"`
	SpecialAssentDate        *string          `json:"special_assent_date"`
	LastActivityDate         *string          `json:"last_activity_date"`
	Active                   *bool            `json:"active"`
	DiedOnOrderPaper         bool             `json:"died_on_order_paper"`
	LastChangedAt            *string          `json:"last_changed_at,omitempty"`
	History                  []snapshotRecord `json:"history"`

	LegacyID             string  `json:"bill_id,omitempty"`
	LegacyBillType       *string `json:"bill_type,omitempty"`
	LegacyAssentDate     *string `json:"royal_assent_date,omitempty"`
	LegacyRecommendation *bool   `json:"has_royal_recommendation,omitempty"`
	LegacyActive         *bool   `json:"is_active,omitempty"`
}

type snapshotRecord struct {
	StatusCode *string `json:"status_code"`
	StatusText string  `json:"status_text"`
	Timestamp  string  `json:"timestamp"`
	Chamber    string  `json:"chamber"`
	SourceURL  *string `json:"source_url"`
	Stage      *string `json:"stage"`
	Amended    *bool   `json:"amended"`

	LegacyTextURL     *string `json:"text_url,omitempty"`
	LegacyTextChanged *bool   `json:"text_changed,omitempty"`
}

func toRecord(e *bill.Entity) entityRecord {
	d := e.Data()
	stage := string(d.CurrentStage)
	r := entityRecord{
		Session:                  d.Session,
		ID:                       d.ID,
		Title:                    d.Title,
		Classification:           optString(d.Classification),
		CurrentStage:             &stage,
		PublicationCount:         d.PublicationCount,
		Sponsor:                  optString(d.Sponsor),
		SponsorAffiliation:       optString(d.SponsorAffiliation),
		HasSpecialRecommendation: &d.HasSpecialRecommendation,
		SpecialAssentDate:        optTime(d.SpecialAssentDate),
		LastActivityDate:         optTime(d.LastActivityDate),
		Active:                   &d.Active,
		DiedOnOrderPaper:         d.DiedOnOrderPaper,
		History:                  make([]snapshotRecord, len(d.History)),
	}
	if !d.LastChangedAt.IsZero() {
		r.LastChangedAt = optTime(&d.LastChangedAt)
	}
	for i, s := range d.History {
		amended := s.Amended
		r.History[i] = snapshotRecord{
			StatusCode: optString(s.StatusCode),
			StatusText: s.StatusText,
			Timestamp:  bill.FormatTimestamp(s.Timestamp),
			Chamber:    s.Chamber,
			SourceURL:  optString(s.SourceURL),
			Stage:      optString(string(s.Stage)),
			Amended:    &amended,
		}
	}
	return r
}

// fromRecord expects upgrade to have run on r.
func fromRecord(r entityRecord) *bill.Entity {
	d := bill.EntityData{
		Session:                  r.Session,
		ID:                       r.ID,
		Title:                    r.Title,
		Classification:           deref(r.Classification),
		Sponsor:                  deref(r.Sponsor),
		SponsorAffiliation:       deref(r.SponsorAffiliation),
		HasSpecialRecommendation: r.HasSpecialRecommendation != nil && *r.HasSpecialRecommendation,
		SpecialAssentDate:        bill.ParseOptionalTimestamp(deref(r.SpecialAssentDate)),
		LastActivityDate:         bill.ParseOptionalTimestamp(deref(r.LastActivityDate)),
		PublicationCount:         r.PublicationCount,
		Active:                   r.Active == nil || *r.Active,
		DiedOnOrderPaper:         r.DiedOnOrderPaper,
		History:                  make([]bill.SnapshotData, 0, len(r.History)),
	}
	if s, ok := bill.ParseStage(deref(r.CurrentStage)); ok {
		d.CurrentStage = s
	}
	if t := bill.ParseOptionalTimestamp(deref(r.LastChangedAt)); t != nil {
		d.LastChangedAt = *t
	}
	for _, s := range r.History {
		sd := bill.SnapshotData{
			StatusCode: deref(s.StatusCode),
			StatusText: s.StatusText,
			Chamber:    s.Chamber,
			SourceURL:  deref(s.SourceURL),
			Amended:    s.Amended != nil && *s.Amended,
		}
		if ts, err := bill.ParseTimestamp(s.Timestamp); err == nil {
			sd.Timestamp = ts
		}
		if st, ok := bill.ParseStage(deref(s.Stage)); ok {
			sd.Stage = st
		}
		d.History = append(d.History, sd)
	}
	return bill.Restore(d)
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := bill.FormatTimestamp(*t)
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
