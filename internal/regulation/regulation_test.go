package regulation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRegistrationID(t *testing.T) {
	assert.Equal(t, "SOR/2024-123", ExtractRegistrationID("Regulations (sor/2024-123) amending"))
	assert.Equal(t, "SI/2023-7", ExtractRegistrationID("Order SI/2023-7 fixing the day"))
	assert.Empty(t, ExtractRegistrationID("Regulations Amending the Food and Drug Regulations"))
}

func TestExtractSponsor(t *testing.T) {
	assert.Equal(t, "Health Canada", ExtractSponsor(" Health Canada ", "Department of Finance"))
	assert.Equal(t, "Department of Finance", ExtractSponsor("", "Issued by the Department of Finance, Ottawa"))
	assert.Equal(t, "Minister of Transport", ExtractSponsor("", "The Minister of Transport. Statutory authority"))
	assert.Empty(t, ExtractSponsor("", "no sponsor here"))
}

func TestExtractEnablingAct(t *testing.T) {
	assert.Equal(t, "Canadian Environmental Protection Act", ExtractEnablingAct("Order made pursuant to the Canadian Environmental Protection Act, 1999"))
	assert.Equal(t, "Fisheries Act", ExtractEnablingAct("Regulations under Fisheries Act."))
	assert.Empty(t, ExtractEnablingAct("Regulations Amending Certain Regulations"))
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "Food and Drug Regulations", CleanName("Regulations Amending the Food and Drug Regulations"))
	assert.Equal(t, "Customs Tariff Schedule", CleanName("Order amending the Customs Tariff Schedule"))
	assert.Equal(t, "Respecting Anchorage", CleanName("Regulation Respecting Anchorage"))
	assert.Equal(t, "Fixing the Day", CleanName("Order Fixing the Day"))
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "reglement sur la peche", NormalizeTitle("  Règlement   sur la  PÊCHE "))
	assert.Equal(t, TitleKey("Règlement sur la pêche"), TitleKey("reglement SUR la peche"))
}

func reg(title, id string, stage Stage) Regulation {
	return Regulation{
		Name:           CleanName(title),
		RegistrationID: id,
		Published:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Stage:          stage,
		RawTitle:       title,
	}
}

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regulations.json")
	s, err := Open(path, nil)
	require.NoError(t, err)
	return s, path
}

func TestStore_Dedup(t *testing.T) {
	s, _ := openStore(t)

	assert.Equal(t, Added, s.Add(reg("Fishery Regulations", "SOR/2024-1", StageEnacted)))
	assert.Equal(t, Duplicate, s.Add(reg("Fishery Regulations", "sor/2024-1", StageEnacted)))

	// an unidentified notice with the same title never overwrites the identified one
	assert.Equal(t, Duplicate, s.Add(reg("FISHERY  regulations", "", StageEnacted)))
	got, ok := s.Get("SOR/2024-1")
	require.True(t, ok)
	assert.Equal(t, "Fishery Regulations", got.RawTitle)
	assert.Equal(t, 1, s.Len())
}

func TestStore_DistinctRegistrationsSharingTitle(t *testing.T) {
	s, _ := openStore(t)

	assert.Equal(t, Added, s.Add(reg("Regulations Amending the Fishery Regulations", "SOR/2024-1", StageEnacted)))
	assert.Equal(t, Added, s.Add(reg("Regulations Amending the Fishery Regulations", "SOR/2024-77", StageEnacted)))
	assert.Equal(t, 2, s.Len())
}

func TestStore_IdentifiedReplacesUnidentified(t *testing.T) {
	s, _ := openStore(t)

	assert.Equal(t, Added, s.Add(reg("Anchorage Order", "", StageEnacted)))
	assert.Equal(t, Replaced, s.Add(reg("Anchorage Order", "SI/2024-9", StageEnacted)))
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("SI/2024-9")
	assert.True(t, ok)
}

func TestStore_PromotesProposedToEnacted(t *testing.T) {
	s, _ := openStore(t)

	s.Add(reg("Vessel Pollution Regulations", "", StageProposed))
	enacted := reg("Vessel Pollution Regulations", "", StageEnacted)
	enacted.Published = enacted.Published.AddDate(0, 3, 0)
	assert.Equal(t, Promoted, s.Add(enacted))

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, StageEnacted, list[0].Stage)
	assert.Equal(t, enacted.Published, list[0].Published)

	assert.Equal(t, Duplicate, s.Add(reg("Vessel Pollution Regulations", "", StageProposed)))
}

func TestStore_SaveAndReload(t *testing.T) {
	s, path := openStore(t)
	s.Add(reg("Fishery Regulations", "SOR/2024-1", StageEnacted))
	s.Add(reg("Anchorage Order", "", StageProposed))
	require.NoError(t, s.Save(context.Background()))

	reloaded, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, s.List(), reloaded.List())
	assert.Len(t, reloaded.Filter(StageProposed, ""), 1)
	assert.Len(t, reloaded.Filter("", "fishery"), 1)
}
