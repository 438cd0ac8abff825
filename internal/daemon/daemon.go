package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/legistrack/internal/api"
	"git.home.luguber.info/inful/legistrack/internal/config"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/logfields"
	"git.home.luguber.info/inful/legistrack/internal/metrics"
)

// Status represents the current state of the daemon.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
)

// Scheduled job names.
const (
	JobGazetteScan = "gazette-scan"
	JobLawSync     = "law-sync"
)

const shutdownTimeout = 15 * time.Second

// Daemon runs the tracker loop alongside the scheduled jobs and the API.
type Daemon struct {
	configPath string
	logger     *slog.Logger
	comp       *Components
	status     atomic.Value

	mu        sync.RWMutex
	config    *config.Config
	startTime time.Time
	scheduler *Scheduler
	watcher   *ConfigWatcher
	api       *api.Server
}

// New builds a daemon around already opened components. configPath enables
// reloads when not empty.
func New(comp *Components, configPath string) *Daemon {
	d := &Daemon{
		configPath: configPath,
		logger:     comp.Logger,
		comp:       comp,
		config:     comp.Config,
	}
	d.status.Store(StatusStopped)
	return d
}

// GetStatus returns the current daemon status.
func (d *Daemon) GetStatus() Status {
	return d.status.Load().(Status)
}

// Config returns the configuration currently in effect.
func (d *Daemon) Config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// Run blocks until ctx is cancelled. The poll loop finishes its current merge
// and persists before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.status.CompareAndSwap(StatusStopped, StatusStarting) {
		return ferrors.DaemonError("daemon is not stopped").WithContext("status", string(d.GetStatus())).Build()
	}
	d.mu.Lock()
	d.startTime = time.Now()
	d.mu.Unlock()
	cfg := d.Config()

	if err := d.startScheduler(ctx, cfg); err != nil {
		d.status.Store(StatusStopped)
		return err
	}

	if d.configPath != "" {
		w, err := NewConfigWatcher(d.configPath, d.Reload, d.logger)
		if err == nil {
			err = w.Start(ctx)
		}
		if err != nil {
			ferrors.Log(ctx, d.logger, "Config watcher disabled", err)
		} else {
			d.watcher = w
		}
	}

	apiErr := make(chan error, 1)
	if cfg.HTTP.Listen != "" {
		d.api = api.NewServer(cfg.HTTP.Listen, d.apiDeps(cfg))
		go func() { apiErr <- d.api.Start() }()
	}

	d.status.Store(StatusRunning)
	d.logger.Info("legistrack daemon started",
		logfields.Path(cfg.Storage.BillsFile),
		logfields.Count(d.comp.Bills.Len()),
		slog.String("listen", cfg.HTTP.Listen),
		slog.Bool("gazette", cfg.Gazette.Enabled),
		slog.Bool("laws", cfg.Laws.Enabled))

	loopDone := make(chan error, 1)
	go func() { loopDone <- d.comp.Loop.Run(ctx) }()

	var runErr error
	select {
	case runErr = <-loopDone:
	case err := <-apiErr:
		// The loop keeps tracking without the API.
		if err != nil {
			ferrors.Log(ctx, d.logger, "API server stopped", err)
		}
		runErr = <-loopDone
	}

	d.shutdown()
	return runErr
}

func (d *Daemon) startScheduler(ctx context.Context, cfg *config.Config) error {
	s, err := NewScheduler(ctx, d.logger)
	if err != nil {
		return err
	}
	if cfg.Gazette.Enabled {
		if err := s.Every(JobGazetteScan, cfg.Gazette.ScanEvery(), true, func(ctx context.Context) error {
			_, err := d.comp.Gazette.Scan(ctx)
			return err
		}); err != nil {
			return err
		}
	}
	if cfg.Laws.Enabled {
		if err := s.Every(JobLawSync, cfg.Laws.SyncEvery(), true, func(ctx context.Context) error {
			_, err := d.comp.Laws.Sync(ctx)
			return err
		}); err != nil {
			return err
		}
	}
	s.Start()
	d.scheduler = s
	return nil
}

func (d *Daemon) apiDeps(cfg *config.Config) api.Deps {
	deps := api.Deps{
		Bills:       d.comp.Bills,
		Regulations: d.comp.Regulations,
		Laws:        d.comp.Laws,
		Cycles:      d.comp.Cycles,
		Tracker:     d.comp.Loop,
		Logger:      d.logger,
	}
	if cfg.HTTP.Metrics {
		deps.Metrics = metrics.HTTPHandler(d.comp.Registry)
	}
	return deps
}

// Reload applies a new configuration. Poll and job intervals change in
// place; storage, listen address and source changes need a restart.
func (d *Daemon) Reload(cfg *config.Config) {
	d.mu.Lock()
	prev := d.config
	d.config = cfg
	d.mu.Unlock()

	d.comp.Loop.UpdateIntervals(cfg.Tracker.PollEvery(), cfg.Tracker.CooldownAfterFailure())
	if d.scheduler != nil {
		for name, every := range map[string]time.Duration{
			JobGazetteScan: cfg.Gazette.ScanEvery(),
			JobLawSync:     cfg.Laws.SyncEvery(),
		} {
			if err := d.scheduler.Reschedule(name, every); err != nil {
				ferrors.Log(context.Background(), d.logger, "Failed to apply new job interval", err, logfields.Job(name))
			}
		}
	}

	if prev.Storage != cfg.Storage || prev.HTTP != cfg.HTTP || prev.LEGISinfo != cfg.LEGISinfo || prev.Notify != cfg.Notify {
		d.logger.Warn("Configuration changes outside tracker intervals take effect after a restart")
	}
	d.logger.Info("Applied configuration",
		slog.Duration("poll_interval", cfg.Tracker.PollEvery()),
		slog.Duration("failure_cooldown", cfg.Tracker.CooldownAfterFailure()))
}

func (d *Daemon) shutdown() {
	d.status.Store(StatusStopping)
	d.logger.Info("Stopping legistrack daemon")

	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil {
			d.logger.Error("Failed to stop scheduler", logfields.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if d.api != nil {
		if err := d.api.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("Failed to stop API server", logfields.Error(err))
		}
	}

	d.mu.RLock()
	uptime := time.Since(d.startTime)
	d.mu.RUnlock()
	d.status.Store(StatusStopped)
	d.logger.Info("legistrack daemon stopped", slog.Duration("uptime", uptime))
}
