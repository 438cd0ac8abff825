package bill

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveRuleOrder(t *testing.T) {
	assent := time.Date(2023, 6, 22, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      ResolveInput
		want    Stage
		amended bool
	}{
		{
			name: "no history seeds first reading",
			in:   ResolveInput{StatusText: "Awaiting message", Chamber: ChamberHouse},
			want: StageFirstReading,
		},
		{
			name: "no history resolves against the seed",
			in:   ResolveInput{StatusText: "At third reading in the House of Commons"},
			want: StageThirdReading,
		},
		{
			name: "no history ignores chamber and amendment",
			in: ResolveInput{StatusText: "At report stage in the Senate", Chamber: ChamberSenate,
				NewPublicationCount: 3},
			want: StageReport,
		},
		{
			name: "chamber switch to senate wins over reading keywords",
			in: ResolveInput{HasHistory: true, PriorStage: StageThirdReading, PriorChamber: "House",
				Chamber: "Senate", StatusText: "At first reading in the Senate"},
			want: StageSecondChamber,
		},
		{
			name: "chamber switch back to house",
			in: ResolveInput{HasHistory: true, PriorStage: StageSecondChamber, PriorChamber: ChamberSenate,
				Chamber: ChamberHouse, StatusText: "Message sent"},
			want: StagePassedFirstChamber,
		},
		{
			name: "assent keyword",
			in: ResolveInput{HasHistory: true, PriorStage: StageSecondChamber, PriorChamber: ChamberSenate,
				Chamber: ChamberSenate, StatusText: "Royal assent received"},
			want: StageFinalAssent,
		},
		{
			name: "assent date newly present",
			in: ResolveInput{HasHistory: true, PriorStage: StageThirdReading, PriorChamber: ChamberHouse,
				Chamber: ChamberHouse, StatusText: "Awaiting", AssentDate: &assent},
			want: StageFinalAssent,
		},
		{
			name: "assent date already known does not trigger",
			in: ResolveInput{HasHistory: true, PriorStage: StageCommittee, PriorChamber: ChamberHouse,
				Chamber: ChamberHouse, StatusText: "Awaiting", PriorAssentDate: &assent, AssentDate: &assent},
			want: StageCommittee,
		},
		{
			name: "defeated beats reading keyword",
			in: ResolveInput{HasHistory: true, PriorStage: StageSecondReading, PriorChamber: ChamberHouse,
				Chamber: ChamberHouse, StatusText: "Defeated at second reading"},
			want: StageTerminated,
		},
		{
			name: "third reading before report",
			in: ResolveInput{HasHistory: true, PriorStage: StageReport, PriorChamber: ChamberHouse,
				Chamber: ChamberHouse, StatusText: "Report stage concluded, at third reading"},
			want: StageThirdReading,
		},
		{
			name: "introduced",
			in: ResolveInput{HasHistory: true, PriorStage: StageUnknown, PriorChamber: ChamberHouse,
				Chamber: ChamberHouse, StatusText: "Introduced and read the first time"},
			want: StageFirstReading,
		},
		{
			name: "report before committee",
			in: ResolveInput{HasHistory: true, PriorStage: StageCommittee, PriorChamber: ChamberHouse,
				Chamber: ChamberHouse, StatusText: "Committee report presented"},
			want: StageReport,
		},
		{
			name: "committee",
			in: ResolveInput{HasHistory: true, PriorStage: StageSecondReading, PriorChamber: ChamberHouse,
				Chamber: ChamberHouse, StatusText: "At consideration in committee"},
			want: StageCommittee,
		},
		{
			name: "no match keeps prior stage",
			in: ResolveInput{HasHistory: true, PriorStage: StageCommittee, PriorChamber: ChamberHouse,
				Chamber: ChamberHouse, StatusText: "Order paper notice"},
			want: StageCommittee,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.in)
			require.Equal(t, tt.want, got.Stage)
			require.Equal(t, tt.amended, got.Amended)
		})
	}
}

func TestResolveAmendmentPrecision(t *testing.T) {
	base := ResolveInput{HasHistory: true, PriorStage: StageCommittee, PriorChamber: ChamberHouse,
		Chamber: ChamberHouse, StatusText: "Report stage", PriorPublicationCount: 2}

	in := base
	in.NewPublicationCount = 3
	got := Resolve(in)
	require.Equal(t, StageReport, got.Stage)
	require.True(t, got.Amended)

	in.NewPublicationCount = 2
	got = Resolve(in)
	require.Equal(t, StageReport, got.Stage)
	require.False(t, got.Amended)

	// Publication bumps outside report stage are never amendments.
	other := base
	other.StatusText = "At consideration in committee"
	other.NewPublicationCount = 5
	require.False(t, Resolve(other).Amended)
}

func TestResolveTerminalFreeze(t *testing.T) {
	for _, terminal := range []Stage{StageFinalAssent, StageTerminated} {
		got := Resolve(ResolveInput{HasHistory: true, PriorStage: terminal, PriorChamber: ChamberHouse,
			Chamber: ChamberSenate, StatusText: "At second reading in the Senate"})
		require.Equal(t, terminal, got.Stage)
	}
}

func TestResolveUnrecognizedChamberWarns(t *testing.T) {
	got := Resolve(ResolveInput{HasHistory: true, PriorStage: StageCommittee, PriorChamber: ChamberHouse,
		Chamber: "Joint Committee", StatusText: "Still in committee"})
	require.Equal(t, StageCommittee, got.Stage)
	require.Len(t, got.Warnings, 1)
}

func TestParseStageLegacyNames(t *testing.T) {
	s, ok := ParseStage("ROYAL_ASSENT")
	require.True(t, ok)
	require.Equal(t, StageFinalAssent, s)

	s, ok = ParseStage("senate_stages")
	require.True(t, ok)
	require.Equal(t, StageSecondChamber, s)

	_, ok = ParseStage("")
	require.False(t, ok)

	s, ok = ParseStage("NOT_A_STAGE")
	require.False(t, ok)
	require.Equal(t, StageUnknown, s)
}
