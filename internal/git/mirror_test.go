package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
)

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	hash, err := wt.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestMirror_CloneThenUpdate(t *testing.T) {
	upstreamDir := t.TempDir()
	upstream, err := git.PlainInit(upstreamDir, false)
	require.NoError(t, err)
	first := commitFile(t, upstream, upstreamDir, "eng/acts/A-1.xml", "<Statute/>")

	m := &Mirror{URL: upstreamDir, Branch: "master", Path: filepath.Join(t.TempDir(), "laws")}

	res, err := m.Sync(t.Context())
	require.NoError(t, err)
	assert.True(t, res.Cloned)
	assert.True(t, res.Changed)
	assert.Equal(t, first, res.After)
	assert.FileExists(t, filepath.Join(m.Path, "eng", "acts", "A-1.xml"))

	res, err = m.Sync(t.Context())
	require.NoError(t, err)
	assert.False(t, res.Cloned)
	assert.False(t, res.Changed)

	second := commitFile(t, upstream, upstreamDir, "eng/acts/B-2.xml", "<Statute/>")
	res, err = m.Sync(t.Context())
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, first, res.Before)
	assert.Equal(t, second, res.After)
	assert.Equal(t, second, m.Head())
	assert.FileExists(t, filepath.Join(m.Path, "eng", "acts", "B-2.xml"))
}

func TestMirror_ReclonesBrokenDirectory(t *testing.T) {
	upstreamDir := t.TempDir()
	upstream, err := git.PlainInit(upstreamDir, false)
	require.NoError(t, err)
	commitFile(t, upstream, upstreamDir, "README", "laws")

	path := filepath.Join(t.TempDir(), "laws")
	require.NoError(t, os.MkdirAll(filepath.Join(path, ".git"), 0o750))

	m := &Mirror{URL: upstreamDir, Branch: "master", Path: path}
	res, err := m.Sync(t.Context())
	require.NoError(t, err)
	assert.True(t, res.Cloned)
}

func TestMirror_MissingRemote(t *testing.T) {
	m := &Mirror{URL: filepath.Join(t.TempDir(), "nope"), Path: filepath.Join(t.TempDir(), "laws")}
	_, err := m.Sync(t.Context())
	require.Error(t, err)
	_, ok := ferrors.AsClassified(err)
	assert.True(t, ok)
}

func TestClassifyGitError(t *testing.T) {
	assert.Nil(t, ClassifyGitError(nil, "clone", "x"))

	err := ClassifyGitError(assert.AnError, "clone", "https://example.test/repo.git")
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryGit))

	err = ClassifyGitError(errString("dial tcp: i/o timeout"), "fetch", "u")
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTransport))
}

type errString string

func (e errString) Error() string { return string(e) }
