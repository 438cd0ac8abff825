package bill

import (
	"fmt"
	"strings"
	"time"
)

// ResolveInput is everything Resolve looks at. It carries no references to an Entity.
type ResolveInput struct {
	HasHistory   bool
	PriorStage   Stage
	PriorChamber string

	StatusText string
	Chamber    string

	PriorPublicationCount int
	NewPublicationCount   int

	PriorAssentDate *time.Time
	AssentDate      *time.Time
}

// ResolveResult is the resolved stage for one observation.
type ResolveResult struct {
	Stage    Stage
	Amended  bool
	Warnings []string
}

var (
	assentMarkers      = []string{"royal assent", "assented to", "received assent"}
	terminationMarkers = []string{"defeated", "withdrawn", "not proceeded"}
	firstReadingWords  = []string{"first reading", "introduced"}
	reportWords        = []string{"report stage", "report"}
)

// Resolve maps an observation onto a canonical stage. Rules are evaluated in a
// fixed order and the first match wins; several keywords can appear in one
// status text.
//
// An entity without history is seeded at FIRST_READING and the observation is
// then resolved against that seed, so a bill first seen at committee or after
// assent lands on that stage rather than on a placeholder a later identical
// poll would move it off. The seed has no prior chamber and no prior text, so
// neither a chamber move nor an amendment can be inferred from it.
func Resolve(in ResolveInput) ResolveResult {
	var res ResolveResult
	seeding := !in.HasHistory
	prior := in.PriorStage
	if seeding {
		prior = StageFirstReading
	}
	if prior == "" {
		prior = StageUnknown
	}
	if prior.IsTerminal() {
		res.Stage = prior
		return res
	}

	if !seeding {
		stage, moved, warn := chamberTransition(in.PriorChamber, in.Chamber)
		if moved {
			res.Stage = stage
			return res
		}
		if warn != "" {
			res.Warnings = append(res.Warnings, warn)
		}
	}

	status := strings.ToLower(in.StatusText)

	if containsAny(status, assentMarkers) || (in.PriorAssentDate == nil && in.AssentDate != nil) {
		res.Stage = StageFinalAssent
		return res
	}
	if containsAny(status, terminationMarkers) {
		res.Stage = StageTerminated
		return res
	}

	switch {
	case strings.Contains(status, "third reading"):
		res.Stage = StageThirdReading
		return res
	case strings.Contains(status, "second reading"):
		res.Stage = StageSecondReading
		return res
	case containsAny(status, firstReadingWords):
		res.Stage = StageFirstReading
		return res
	}

	if containsAny(status, reportWords) {
		res.Stage = StageReport
		res.Amended = !seeding && in.NewPublicationCount > in.PriorPublicationCount
		return res
	}
	if strings.Contains(status, "committee") {
		res.Stage = StageCommittee
		return res
	}

	res.Stage = prior
	return res
}

// chamberTransition reports a stage when the bill moved between chambers.
// An unrecognized new chamber yields a warning and no transition.
func chamberTransition(prior, next string) (Stage, bool, string) {
	if prior == "" || next == "" || strings.EqualFold(strings.TrimSpace(prior), strings.TrimSpace(next)) {
		return "", false, ""
	}
	from, to := SideOf(prior), SideOf(next)
	if to == ChamberUnrecognized {
		return "", false, fmt.Sprintf("unrecognized chamber %q", next)
	}
	if from == to {
		return "", false, ""
	}
	if to == ChamberSecond {
		return StageSecondChamber, true, ""
	}
	return StagePassedFirstChamber, true, ""
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
