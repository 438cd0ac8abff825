package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteJSONReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bills.json")

	require.NoError(t, WriteJSON(path, map[string]int{"a": 1}))
	require.NoError(t, WriteJSON(path, map[string]int{"a": 2}))

	data, err := ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":2}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestWriteFileAtomicSyncsDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bills.json")

	var synced []string
	orig := syncDir
	t.Cleanup(func() { syncDir = orig })
	syncDir = func(dir string) error {
		synced = append(synced, dir)
		// The rename must already be visible when the directory is synced.
		_, err := os.Stat(path)
		require.NoError(t, err)
		return orig(dir)
	}

	require.NoError(t, WriteFileAtomic(path, []byte("{}"), 0o644))
	require.Equal(t, []string{filepath.Dir(path)}, synced)

	syncDir = func(string) error { return errors.New("input/output error") }
	err := WriteFileAtomic(path, []byte("[]"), 0o644)
	require.ErrorContains(t, err, "sync directory")
}

func TestReadFileMissing(t *testing.T) {
	data, err := ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bills.json")

	l, err := Acquire(t.Context(), path)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 120*time.Millisecond)
	defer cancel()
	_, err = Acquire(ctx, path)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, l.Release())
	l2, err := Acquire(t.Context(), path)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}
