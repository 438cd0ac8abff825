package bill

import "strings"

// Stage is the canonical phase of the legislative process.
type Stage string

const (
	StageUnknown            Stage = "UNKNOWN"
	StageFirstReading       Stage = "FIRST_READING"
	StageSecondReading      Stage = "SECOND_READING"
	StageCommittee          Stage = "COMMITTEE"
	StageReport             Stage = "REPORT_STAGE"
	StageThirdReading       Stage = "THIRD_READING"
	StagePassedFirstChamber Stage = "PASSED_FIRST_CHAMBER"
	StageSecondChamber      Stage = "SECOND_CHAMBER_STAGES"
	StageFinalAssent        Stage = "FINAL_ASSENT"
	StageTerminated         Stage = "TERMINATED"
)

// Stages lists every stage in process order. UNKNOWN comes first.
var Stages = []Stage{
	StageUnknown,
	StageFirstReading,
	StageSecondReading,
	StageCommittee,
	StageReport,
	StageThirdReading,
	StagePassedFirstChamber,
	StageSecondChamber,
	StageFinalAssent,
	StageTerminated,
}

var stageLabels = map[Stage]string{
	StageUnknown:            "Unknown",
	StageFirstReading:       "First reading",
	StageSecondReading:      "Second reading",
	StageCommittee:          "Committee",
	StageReport:             "Report stage",
	StageThirdReading:       "Third reading",
	StagePassedFirstChamber: "Passed first chamber",
	StageSecondChamber:      "Second chamber stages",
	StageFinalAssent:        "Royal assent",
	StageTerminated:         "Defeated or withdrawn",
}

// Names written by earlier versions of the tracker.
var legacyStages = map[string]Stage{
	"PASSED_HOUSE":  StagePassedFirstChamber,
	"SENATE_STAGES": StageSecondChamber,
	"ROYAL_ASSENT":  StageFinalAssent,
	"DEFEATED":      StageTerminated,
}

func (s Stage) String() string { return string(s) }

// Label returns a human readable name.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// IsTerminal reports whether no further stage transitions are evaluated.
func (s Stage) IsTerminal() bool {
	return s == StageFinalAssent || s == StageTerminated
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	_, ok := stageLabels[s]
	return ok
}

// ParseStage maps a persisted stage name, including legacy names, onto a Stage.
// Empty input returns ("", false).
func ParseStage(name string) (Stage, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return "", false
	}
	if s := Stage(name); s.Valid() {
		return s, true
	}
	if s, ok := legacyStages[name]; ok {
		return s, true
	}
	return StageUnknown, false
}
