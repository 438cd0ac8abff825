package bill

import (
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
)

// Observation is one raw bill record as produced by a fetcher. Optional fields
// use their zero value (or nil) when the source omitted them.
type Observation struct {
	Session    string
	ID         string
	Title      string
	StatusCode string
	StatusText string
	Chamber    string
	ObservedAt time.Time
	SourceURL  string

	PublicationCount         *int
	Sponsor                  string
	SponsorAffiliation       string
	HasSpecialRecommendation *bool
	SpecialAssentDate        *time.Time
	LastActivityDate         *time.Time
}

// Key returns the identity key "<session>/<id>".
func (o Observation) Key() string {
	return MakeKey(o.Session, o.ID)
}

// MakeKey builds the identity key for a session and bill id.
func MakeKey(session, id string) string {
	return strings.TrimSpace(session) + "/" + strings.TrimSpace(id)
}

// Validate checks the identity fields. A failing record is skipped, not fatal.
func (o Observation) Validate() error {
	if strings.TrimSpace(o.Session) == "" || strings.TrimSpace(o.ID) == "" {
		return ferrors.RecordError("observation missing session or id").
			WithContext("session", o.Session).
			WithContext("id", o.ID).
			Build()
	}
	return nil
}

// IntPtr and BoolPtr are small helpers for building observations.
func IntPtr(n int) *int    { return &n }
func BoolPtr(b bool) *bool { return &b }
