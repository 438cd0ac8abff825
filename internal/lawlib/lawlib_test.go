package lawlib

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/git"
)

const privacyAct = `<?xml version="1.0" encoding="UTF-8"?>
<Statute><Identification><LongTitle>An Act to extend the present laws of Canada that protect the privacy of individuals</LongTitle>
<ShortTitle>Privacy Act</ShortTitle></Identification><Body/></Statute>`

const privacyRegs = `<?xml version="1.0" encoding="UTF-8"?>
<Regulation><Identification><LongTitle>Privacy Regulations</LongTitle></Identification></Regulation>`

const fisheryRegs = `<?xml version="1.0" encoding="UTF-8"?>
<Regulation><Identification><LongTitle>Fishery (General) Regulations</LongTitle></Identification></Regulation>`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestParseLaw(t *testing.T) {
	law, err := parseLaw("/x/P-21.xml", []byte(privacyAct))
	require.NoError(t, err)
	assert.Equal(t, "P-21", law.ID)
	assert.Equal(t, "An Act to extend the present laws of Canada that protect the privacy of individuals", law.Title)

	law, err = parseLaw("/x/A-1.xml", []byte(`<Statute><Body/></Statute>`))
	require.NoError(t, err)
	assert.Equal(t, "A 1", law.Title)

	_, err = parseLaw("/x/B.xml", []byte(`<Statute>`))
	require.Error(t, err)
}

func TestParseType(t *testing.T) {
	typ, ok := ParseType("acts")
	assert.True(t, ok)
	assert.Equal(t, TypeAct, typ)
	_, ok = ParseType("bylaw")
	assert.False(t, ok)
}

func TestIndex_RebuildSearchGet(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "eng/acts/P-21.xml", privacyAct)
	writeFile(t, root, "eng/regulations/SOR-83-508.xml", privacyRegs)
	writeFile(t, root, "eng/regulations/CRC-c-805.xml", fisheryRegs)
	writeFile(t, root, "eng/regulations/broken.xml", "<Regulation>")

	idx, err := OpenIndex(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	counts, err := idx.Rebuild(t.Context(), filepath.Join(root, "eng/acts"), filepath.Join(root, "eng/regulations"))
	require.NoError(t, err)
	assert.Equal(t, Counts{Acts: 1, Regulations: 2, Total: 3}, counts)

	got, err := idx.Search(t.Context(), "PRIVACY", "")
	require.NoError(t, err)
	require.Len(t, got, 2)

	regs, err := idx.Search(t.Context(), "privacy", TypeRegulation)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "SOR-83-508", regs[0].ID)

	none, err := idx.Search(t.Context(), "100%", "")
	require.NoError(t, err)
	assert.Empty(t, none)

	law, err := idx.Get(t.Context(), "CRC-c-805")
	require.NoError(t, err)
	assert.Equal(t, TypeRegulation, law.Type)

	_, err = idx.Get(t.Context(), "Z-99")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))

	again, err := idx.Rebuild(t.Context(), filepath.Join(root, "eng/acts"), filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.Equal(t, 1, again.Total, "rebuild replaces the previous contents")
}

func TestLibrary_SyncFromMirror(t *testing.T) {
	upstreamDir := t.TempDir()
	repo, err := gogit.PlainInit(upstreamDir, false)
	require.NoError(t, err)
	writeFile(t, upstreamDir, "eng/acts/P-21.xml", privacyAct)
	writeFile(t, upstreamDir, "eng/regulations/SOR-83-508.xml", privacyRegs)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddGlob("eng"))
	_, err = wt.Commit("laws", &gogit.CommitOptions{Author: &object.Signature{Name: "t", Email: "t@example.com", When: time.Now()}})
	require.NoError(t, err)

	idx, err := OpenIndex(filepath.Join(t.TempDir(), "laws.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	lib := NewLibrary(&git.Mirror{URL: upstreamDir, Branch: "master", Path: filepath.Join(t.TempDir(), "mirror")}, idx, nil)

	report, err := lib.Sync(t.Context())
	require.NoError(t, err)
	assert.True(t, report.Reindexed)
	assert.Equal(t, 2, report.Counts.Total)

	report, err = lib.Sync(t.Context())
	require.NoError(t, err)
	assert.False(t, report.Reindexed, "unchanged mirror keeps the index")

	text, err := lib.Get(t.Context(), "P-21")
	require.NoError(t, err)
	assert.Contains(t, string(text.Content), "Privacy Act")

	byTitle, err := lib.GetByTitle(t.Context(), "privacy regulations")
	require.NoError(t, err)
	assert.Equal(t, "SOR-83-508", byTitle.ID)

	regs, err := lib.RegulationsForAct(t.Context(), "Privacy")
	require.NoError(t, err)
	assert.Len(t, regs, 1)

	stats, err := lib.Stats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Counts.Acts)
	assert.Len(t, stats.Commit, 40)
}
