package bill

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ChangeKind labels what an Update did.
type ChangeKind string

const (
	ChangeNone      ChangeKind = ""
	ChangeNew       ChangeKind = "new"
	ChangeStage     ChangeKind = "stage"
	ChangeAmendment ChangeKind = "amendment"
	ChangeStatus    ChangeKind = "status"
)

// Change is the outcome of Entity.Update.
type Change struct {
	Changed   bool
	Kind      ChangeKind
	FromStage Stage
	ToStage   Stage
	Snapshot  Snapshot // the appended snapshot when Changed
	Warnings  []string // invariant violations seen while applying the observation
}

// Entity is a tracked bill identified by (session, id). Its history only grows,
// and only through Update.
type Entity struct {
	session string
	id      string

	title                    string
	classification           string
	sponsor                  string
	sponsorAffiliation       string
	hasSpecialRecommendation bool
	specialAssentDate        *time.Time
	lastActivityDate         *time.Time

	publicationCount int
	currentStage     Stage
	history          []Snapshot
	lastChangedAt    time.Time

	active           bool
	diedOnOrderPaper bool
}

// New returns an empty entity for a previously unseen identity key.
func New(session, id string) *Entity {
	session, id = strings.TrimSpace(session), strings.TrimSpace(id)
	return &Entity{
		session:        session,
		id:             id,
		classification: Classify(id, ""),
		currentStage:   StageUnknown,
		active:         true,
	}
}

// Update applies one observation. A snapshot is appended iff the
// (statusCode, statusText, chamber) tuple differs from the latest snapshot,
// the resolved stage differs from the current stage, or an amendment is newly
// detected. An observation repeating the latest tuple with no new assent date
// and no publication bump is never a change, whatever it would resolve to.
// Metadata is refreshed either way; absent values never erase known ones.
func (e *Entity) Update(obs Observation, now time.Time) Change {
	var change Change

	priorAssent := e.specialAssentDate
	priorCount := e.publicationCount
	e.applyMetadata(obs)

	newCount := priorCount
	if obs.PublicationCount != nil {
		if *obs.PublicationCount < priorCount {
			change.Warnings = append(change.Warnings,
				fmt.Sprintf("publication count decreased from %d to %d", priorCount, *obs.PublicationCount))
		} else {
			newCount = *obs.PublicationCount
		}
	}

	last, hasHistory := e.Latest()
	newAssent := priorAssent == nil && obs.SpecialAssentDate != nil
	if hasHistory && last.sameStatus(obs.StatusCode, obs.StatusText, obs.Chamber) &&
		!newAssent && newCount <= priorCount {
		return change
	}

	res := Resolve(ResolveInput{
		HasHistory:            hasHistory,
		PriorStage:            e.currentStage,
		PriorChamber:          last.Chamber(),
		StatusText:            obs.StatusText,
		Chamber:               obs.Chamber,
		PriorPublicationCount: priorCount,
		NewPublicationCount:   newCount,
		PriorAssentDate:       priorAssent,
		AssentDate:            obs.SpecialAssentDate,
	})
	change.Warnings = append(change.Warnings, res.Warnings...)

	changed := !hasHistory ||
		!last.sameStatus(obs.StatusCode, obs.StatusText, obs.Chamber) ||
		res.Stage != e.currentStage ||
		res.Amended
	if !changed {
		return change
	}

	ts := obs.ObservedAt
	if ts.IsZero() {
		ts = now
	}
	if hasHistory && ts.Before(last.Timestamp()) {
		ts = last.Timestamp()
	}

	snap := NewSnapshot(SnapshotData{
		StatusCode: obs.StatusCode,
		StatusText: obs.StatusText,
		Timestamp:  ts,
		Chamber:    obs.Chamber,
		SourceURL:  obs.SourceURL,
		Stage:      res.Stage,
		Amended:    res.Amended,
	})
	e.history = append(e.history, snap)

	change.Changed = true
	change.FromStage = e.currentStage
	change.ToStage = res.Stage
	change.Snapshot = snap
	switch {
	case !hasHistory:
		change.Kind = ChangeNew
	case res.Amended:
		change.Kind = ChangeAmendment
	case res.Stage != e.currentStage:
		change.Kind = ChangeStage
	default:
		change.Kind = ChangeStatus
	}

	e.currentStage = res.Stage
	e.publicationCount = newCount
	e.lastChangedAt = ts
	return change
}

func (e *Entity) applyMetadata(obs Observation) {
	if t := strings.TrimSpace(obs.Title); t != "" {
		e.title = t
		e.classification = Classify(e.id, t)
	}
	if obs.Sponsor != "" {
		e.sponsor = obs.Sponsor
	}
	if obs.SponsorAffiliation != "" {
		e.sponsorAffiliation = obs.SponsorAffiliation
	}
	if obs.HasSpecialRecommendation != nil {
		e.hasSpecialRecommendation = *obs.HasSpecialRecommendation
	}
	if obs.SpecialAssentDate != nil {
		d := *obs.SpecialAssentDate
		e.specialAssentDate = &d
	}
	if obs.LastActivityDate != nil {
		d := *obs.LastActivityDate
		e.lastActivityDate = &d
	}
}

// MarkDiedOnOrderPaper flags a bill that ended with its parliament without
// assent. It reports whether anything changed. History is not touched.
func (e *Entity) MarkDiedOnOrderPaper() bool {
	if !e.active || e.specialAssentDate != nil || e.currentStage == StageFinalAssent {
		return false
	}
	e.active = false
	e.diedOnOrderPaper = true
	return true
}

func (e *Entity) Session() string                { return e.session }
func (e *Entity) ID() string                     { return e.id }
func (e *Entity) Key() string                    { return MakeKey(e.session, e.id) }
func (e *Entity) Title() string                  { return e.title }
func (e *Entity) Classification() string         { return e.classification }
func (e *Entity) Sponsor() string                { return e.sponsor }
func (e *Entity) SponsorAffiliation() string     { return e.sponsorAffiliation }
func (e *Entity) HasSpecialRecommendation() bool { return e.hasSpecialRecommendation }
func (e *Entity) SpecialAssentDate() *time.Time  { return copyTime(e.specialAssentDate) }
func (e *Entity) LastActivityDate() *time.Time   { return copyTime(e.lastActivityDate) }
func (e *Entity) PublicationCount() int          { return e.publicationCount }
func (e *Entity) CurrentStage() Stage            { return e.currentStage }
func (e *Entity) LastChangedAt() time.Time       { return e.lastChangedAt }
func (e *Entity) Active() bool                   { return e.active }
func (e *Entity) DiedOnOrderPaper() bool         { return e.diedOnOrderPaper }
func (e *Entity) Parliament() int                { return Parliament(e.session) }
func (e *Entity) Len() int                       { return len(e.history) }

// History returns a copy of the snapshot history, oldest first.
func (e *Entity) History() []Snapshot { return slices.Clone(e.history) }

// Latest returns the most recent snapshot.
func (e *Entity) Latest() (Snapshot, bool) {
	if len(e.history) == 0 {
		return Snapshot{}, false
	}
	return e.history[len(e.history)-1], true
}

// Clone returns an independent copy.
func (e *Entity) Clone() *Entity {
	c := *e
	c.history = slices.Clone(e.history)
	c.specialAssentDate = copyTime(e.specialAssentDate)
	c.lastActivityDate = copyTime(e.lastActivityDate)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
