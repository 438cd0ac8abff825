package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/legistrack/internal/config"
	"git.home.luguber.info/inful/legistrack/internal/eventstore"
	"git.home.luguber.info/inful/legistrack/internal/fetch"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/gazette"
	"git.home.luguber.info/inful/legistrack/internal/git"
	"git.home.luguber.info/inful/legistrack/internal/lawlib"
	"git.home.luguber.info/inful/legistrack/internal/legisinfo"
	"git.home.luguber.info/inful/legistrack/internal/logfields"
	"git.home.luguber.info/inful/legistrack/internal/metrics"
	"git.home.luguber.info/inful/legistrack/internal/notify"
	"git.home.luguber.info/inful/legistrack/internal/regulation"
	"git.home.luguber.info/inful/legistrack/internal/retry"
	"git.home.luguber.info/inful/legistrack/internal/state"
	"git.home.luguber.info/inful/legistrack/internal/tracker"
)

// cycleHistorySize bounds the in-memory cycle projection.
const cycleHistorySize = 200

// Components holds every long-lived object built from a configuration. The
// CLI uses it for one-shot commands; the Daemon schedules it.
type Components struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Recorder metrics.Recorder

	HTTP   *fetch.Client
	Source *legisinfo.Client
	Bills  *state.Store
	Loop   *tracker.Loop

	Journal  *eventstore.SQLiteStore // nil when storage.journal_db is empty
	Cycles   *eventstore.CycleHistoryProjection
	NATS     *notify.NATS // nil when notify.nats_url is empty or unreachable
	Notifier notify.Multi

	Regulations *regulation.Store
	Gazette     *gazette.Scanner

	LawIndex *lawlib.Index
	Laws     *lawlib.Library
}

// Open builds the components described by cfg. NATS being unreachable is
// logged and tolerated; every other failure is returned.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o750); err != nil {
		return nil, ferrors.PersistenceError("failed to create data directory").
			WithCause(err).WithContext("path", cfg.Storage.DataDir).Build()
	}

	c := &Components{Config: cfg, Logger: logger, Registry: metrics.NewRegistry()}
	c.Recorder = metrics.NewPrometheusRecorder(c.Registry)

	c.HTTP = fetch.New(FetchOptions(cfg, logger))
	c.Source = legisinfo.NewClient(c.HTTP, cfg.LEGISinfo.BaseURL, cfg.Tracker.CurrentParliament, logger)

	var err error
	if c.Bills, err = state.Open(cfg.Storage.BillsFile, state.WithLogger(logger)); err != nil {
		return nil, err
	}
	c.Recorder.SetTrackedEntities(c.Bills.Len())

	c.Notifier = notify.Multi{notify.Log{Logger: logger}}
	if cfg.Storage.JournalDB != "" {
		if c.Journal, err = eventstore.NewSQLiteStore(cfg.Storage.JournalDB); err != nil {
			return nil, err
		}
		c.Cycles = eventstore.NewCycleHistoryProjection(c.Journal, cycleHistorySize)
		if err := c.Cycles.Rebuild(ctx); err != nil {
			ferrors.Log(ctx, logger, "Failed to rebuild cycle history", err)
		}
		c.Notifier = append(c.Notifier, &notify.Journal{Store: c.Journal, Projection: c.Cycles, Logger: logger})
	}
	if cfg.Notify.NATSURL != "" {
		n, err := notify.NewNATS(ctx, cfg.Notify.NATSURL, cfg.Notify.Subject, cfg.Notify.KVBucket, logger)
		if err != nil {
			ferrors.Log(ctx, logger, "NATS notifications disabled", err, logfields.URL(cfg.Notify.NATSURL))
		} else {
			c.NATS = n
			c.Notifier = append(c.Notifier, n)
		}
	}

	c.Loop = tracker.New(TrackerConfig(cfg), c.Source, c.Bills, c.Notifier,
		tracker.WithLogger(logger), tracker.WithRecorder(c.Recorder))

	if c.Regulations, err = regulation.Open(cfg.Storage.RegulationsFile, logger); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Gazette = gazette.NewScanner(c.HTTP, c.Regulations, []gazette.Feed{
		{URL: cfg.Gazette.Part1URL, Stage: regulation.StageProposed},
		{URL: cfg.Gazette.Part2URL, Stage: regulation.StageEnacted},
	}, logger, c.Recorder)

	if c.LawIndex, err = lawlib.OpenIndex(cfg.Storage.LawIndexDB, logger); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Laws = lawlib.NewLibrary(&git.Mirror{
		URL:    cfg.Laws.RepoURL,
		Branch: cfg.Laws.Branch,
		Path:   cfg.Storage.LawRepoDir,
		Depth:  1,
		Logger: logger,
	}, c.LawIndex, logger)

	return c, nil
}

// Close releases the journal, the law index and the NATS connection.
func (c *Components) Close() error {
	var errs []error
	if c.NATS != nil {
		errs = append(errs, c.NATS.Close())
	}
	if c.Journal != nil {
		errs = append(errs, c.Journal.Close())
	}
	if c.LawIndex != nil {
		errs = append(errs, c.LawIndex.Close())
	}
	return errors.Join(errs...)
}

// FetchOptions maps the legisinfo section onto the shared HTTP client.
func FetchOptions(cfg *config.Config, logger *slog.Logger) fetch.Options {
	l := cfg.LEGISinfo
	return fetch.Options{
		Timeout:           l.RequestTimeout(),
		UserAgent:         l.UserAgent,
		RequestsPerSecond: l.RequestsPerSecond,
		RespectRobots:     l.RespectRobots,
		CacheTTL:          l.CacheFor(),
		MaxBodyBytes:      l.MaxBodyBytes,
		Retry:             retry.NewPolicy(l.RetryBackoff, l.RetryInitial(), l.RetryMax(), l.MaxRetries),
		Logger:            logger,
	}
}

// TrackerConfig maps the tracker section onto the loop configuration.
func TrackerConfig(cfg *config.Config) tracker.Config {
	t := cfg.Tracker
	return tracker.Config{
		PollInterval:      t.PollEvery(),
		FailureCooldown:   t.CooldownAfterFailure(),
		BackfillDelay:     t.DelayBetweenRequests(),
		Partitions:        tracker.EnumeratePartitions(t.HistoricalFrom, t.HistoricalTo, t.MaxSessions),
		MinEntities:       t.MinEntities,
		DisableBackfill:   t.DisableBackfill,
		ForceBackfill:     t.ForceBackfill,
		CurrentParliament: t.CurrentParliament,
	}
}
