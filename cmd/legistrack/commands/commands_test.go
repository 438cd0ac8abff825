package commands

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/legistrack/internal/bill"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/state"
)

// run parses args against a fresh CLI and returns what the command printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cli := &CLI{}
	var out bytes.Buffer
	cli.out = &out
	parser, err := kong.New(cli, kong.Name("legistrack"), kong.Vars{"version": "test"})
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	err = ctx.Run(&Global{Ctx: t.Context(), Logger: slog.Default()}, cli)
	return out.String(), err
}

// workspace writes a configuration and a small bill collection.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "legistrack.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf("storage:\n  data_dir: %s\n", dir)), 0o600))

	store, err := state.Open(filepath.Join(dir, "bills.json"))
	require.NoError(t, err)
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store.Merge(t.Context(), []bill.Observation{
		{Session: "44-1", ID: "C-11", Title: "An Act to amend the Broadcasting Act", StatusText: "Introduced",
			Chamber: bill.ChamberHouse, ObservedAt: at, Sponsor: "Hon. Pablo Rodriguez"},
		{Session: "44-1", ID: "S-5", Title: "Strengthening Environmental Protection", StatusText: "Introduced",
			Chamber: bill.ChamberSenate, ObservedAt: at},
	})
	store.Merge(t.Context(), []bill.Observation{
		{Session: "44-1", ID: "C-11", Title: "An Act to amend the Broadcasting Act", StatusText: "At committee",
			Chamber: bill.ChamberHouse, ObservedAt: at.AddDate(0, 0, 7)},
	})
	require.NoError(t, store.Save(t.Context()))
	return cfgPath
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legistrack.yaml")
	out, err := run(t, "-c", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote configuration")

	_, err = run(t, "-c", path, "init")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	_, err = run(t, "-c", path, "init", "--force")
	require.NoError(t, err)
}

func TestLookup(t *testing.T) {
	cfg := workspace(t)

	out, err := run(t, "-c", cfg, "lookup", "c-11")
	require.NoError(t, err)
	assert.Contains(t, out, "C-11 (44-1) An Act to amend the Broadcasting Act")
	assert.Contains(t, out, "Stage:          Committee")
	assert.Contains(t, out, "Hon. Pablo Rodriguez")

	_, err = run(t, "-c", cfg, "lookup", "C-999")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
	assert.Equal(t, 3, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestChangesAndSummary(t *testing.T) {
	cfg := workspace(t)

	out, err := run(t, "-c", cfg, "changes", "--since", "2024-03-05T00:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "C-11")
	assert.NotContains(t, out, "S-5")

	out, err = run(t, "-c", cfg, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Bills tracked: 2")
	assert.Contains(t, out, "Committee")
}

func TestDigestWriteAndVerify(t *testing.T) {
	cfg := workspace(t)
	path := filepath.Join(t.TempDir(), "digest.md")

	_, err := run(t, "-c", cfg, "digest", "--since", "2024-02-01T00:00:00Z", "-o", path)
	require.NoError(t, err)

	out, err := run(t, "-c", cfg, "digest", "--verify", path)
	require.NoError(t, err)
	assert.Contains(t, out, "fingerprint OK")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, bytes.Replace(data, []byte("Committee"), []byte("Withdrawn"), 1), 0o600))
	_, err = run(t, "-c", cfg, "digest", "--verify", path)
	require.Error(t, err)
}

func TestBackfillPartitions(t *testing.T) {
	b := &BackfillCmd{Partition: []string{"44-1", "43-2"}}
	parts, err := b.partitions(35, 44, 4)
	require.NoError(t, err)
	assert.Len(t, parts, 2)

	b = &BackfillCmd{From: 43, MaxSessions: 1}
	parts, err = b.partitions(35, 44, 4)
	require.NoError(t, err)
	assert.Len(t, parts, 2)

	b = &BackfillCmd{From: 44, To: 40}
	_, err = b.partitions(35, 44, 4)
	require.Error(t, err)

	b = &BackfillCmd{Partition: []string{"bogus"}}
	_, err = b.partitions(35, 44, 4)
	require.Error(t, err)
}

func TestRegulationsListEmpty(t *testing.T) {
	cfg := workspace(t)
	out, err := run(t, "-c", cfg, "regulations", "list", "--stage", "enacted")
	require.NoError(t, err)
	assert.Contains(t, out, "PUBLISHED")

	_, err = run(t, "-c", cfg, "regulations", "list", "--stage", "draft")
	require.Error(t, err)
}
