package daemon

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/legistrack/internal/config"
)

const billsXML = `<?xml version="1.0" encoding="utf-8"?>
<ArrayOfBill>
  <Bill>
    <BillNumberFormatted>C-11</BillNumberFormatted>
    <ParlSessionCode>44-1</ParlSessionCode>
    <LongTitleEn>An Act to amend the Broadcasting Act</LongTitleEn>
    <CurrentStatusEn>At consideration in committee in the House of Commons</CurrentStatusEn>
    <OriginatingChamberId>1</OriginatingChamberId>
  </Bill>
</ArrayOfBill>`

func legisinfoServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(billsXML))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func configYAML(dataDir, baseURL, poll string) string {
	return fmt.Sprintf(`storage:
  data_dir: %s
  journal_db: journal.db
tracker:
  poll_interval: %s
  failure_cooldown: 1h
  disable_backfill: true
legisinfo:
  base_url: %s/bills.xml
  requests_per_second: 100
`, dataDir, poll, baseURL)
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(configYAML(t.TempDir(), baseURL, "1h")))
	require.NoError(t, err)
	return cfg
}

func TestOpen_PollCycleReachesJournal(t *testing.T) {
	srv, _ := legisinfoServer(t)
	comp, err := Open(t.Context(), testConfig(t, srv.URL), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = comp.Close() })

	assert.Nil(t, comp.NATS)
	require.NotNil(t, comp.Journal)

	report, err := comp.Loop.RunPollCycle(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report.New)

	e, ok := comp.Bills.GetEntity("44-1", "C-11")
	require.True(t, ok)
	assert.Equal(t, "government+amending", e.Classification())

	history := comp.Cycles.History()
	require.Len(t, history, 1)
	assert.Equal(t, "completed", history[0].Status)
	assert.Equal(t, 1, history[0].New)
}

func TestTrackerConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`tracker:
  historical_from: 43
  historical_to: 44
  max_sessions: 2
  poll_interval: 30m
`))
	require.NoError(t, err)
	tc := TrackerConfig(cfg)
	assert.Equal(t, 30*time.Minute, tc.PollInterval)
	assert.Len(t, tc.Partitions, 4)
	assert.Equal(t, 10, tc.MinEntities)
	assert.Equal(t, 44, tc.CurrentParliament)
}

func TestDaemon_RunUntilCancelled(t *testing.T) {
	srv, hits := legisinfoServer(t)
	comp, err := Open(t.Context(), testConfig(t, srv.URL), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = comp.Close() })

	d := New(comp, "")
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return comp.Bills.Len() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, StatusRunning, d.GetStatus())
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}
	assert.Equal(t, StatusStopped, d.GetStatus())
	assert.EqualValues(t, 1, hits.Load())

	_, err = os.Stat(comp.Config.Storage.BillsFile)
	require.NoError(t, err)
}

func TestDaemon_RunTwiceRejected(t *testing.T) {
	srv, _ := legisinfoServer(t)
	comp, err := Open(t.Context(), testConfig(t, srv.URL), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = comp.Close() })

	d := New(comp, "")
	d.status.Store(StatusRunning)
	require.Error(t, d.Run(t.Context()))
}

func TestDaemon_ReloadReschedulesJobs(t *testing.T) {
	srv, _ := legisinfoServer(t)
	comp, err := Open(t.Context(), testConfig(t, srv.URL), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = comp.Close() })

	d := New(comp, "")
	s, err := NewScheduler(t.Context(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	require.NoError(t, s.Every(JobGazetteScan, 24*time.Hour, false, func(context.Context) error { return nil }))
	s.Start()
	d.scheduler = s

	next := *comp.Config
	next.Tracker.PollInterval = "2h"
	next.Gazette.ScanInterval = "6h"
	d.Reload(&next)

	assert.Equal(t, "2h", d.Config().Tracker.PollInterval)
	every, ok := s.Interval(JobGazetteScan)
	require.True(t, ok)
	assert.Equal(t, 6*time.Hour, every)
}

func TestConfigWatcher_AppliesValidChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legistrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML(dir, "https://example.org", "1h")), 0o600))

	applied := make(chan *config.Config, 4)
	w, err := NewConfigWatcher(path, func(c *config.Config) { applied <- c }, nil)
	require.NoError(t, err)
	w.debounceTime = 10 * time.Millisecond
	require.NoError(t, w.Start(t.Context()))
	t.Cleanup(w.Stop)

	require.NoError(t, os.WriteFile(path, []byte("tracker: [not, a, map]\n"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte(configYAML(dir, "https://example.org", "3h")), 0o600))

	select {
	case c := <-applied:
		assert.Equal(t, 3*time.Hour, c.Tracker.PollEvery())
	case <-time.After(5 * time.Second):
		t.Fatal("configuration was not reloaded")
	}
}

func TestConfigWatcher_SkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legistrack.yaml")
	body := []byte(configYAML(dir, "https://example.org", "1h"))
	require.NoError(t, os.WriteFile(path, body, 0o600))

	applied := 0
	w, err := NewConfigWatcher(path, func(*config.Config) { applied++ }, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))
	w.Stop()

	require.NoError(t, w.performReload())
	assert.Zero(t, applied, "touching the file without changing it does not reload")

	require.NoError(t, os.WriteFile(path, []byte(configYAML(dir, "https://example.org", "2h")), 0o600))
	require.NoError(t, w.performReload())
	assert.Equal(t, 1, applied)
}
