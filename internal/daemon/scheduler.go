package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/logfields"
	"git.home.luguber.info/inful/legistrack/internal/observability"
)

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

// Scheduler wraps gocron for the periodic Gazette and law library jobs.
// A job never overlaps with itself; a run that is still going when the next
// one is due pushes that one back.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger

	mu       sync.Mutex
	ctx      context.Context
	jobs     map[string]uuid.UUID
	interval map[string]time.Duration
	funcs    map[string]JobFunc
}

// NewScheduler creates a new scheduler instance. Jobs run with ctx.
func NewScheduler(ctx context.Context, logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, ferrors.DaemonError("failed to create gocron scheduler").WithCause(err).Build()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: s,
		logger:    logger,
		ctx:       ctx,
		jobs:      make(map[string]uuid.UUID),
		interval:  make(map[string]time.Duration),
		funcs:     make(map[string]JobFunc),
	}, nil
}

// Every registers fn under name to run each interval. With immediate the
// first run happens as soon as the scheduler starts.
func (s *Scheduler) Every(name string, interval time.Duration, immediate bool, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return ferrors.DaemonError(fmt.Sprintf("job %q already scheduled", name)).Build()
	}

	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if immediate {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}
	job, err := s.scheduler.NewJob(gocron.DurationJob(interval), gocron.NewTask(s.run, name, fn), opts...)
	if err != nil {
		return ferrors.DaemonError("failed to schedule job").WithCause(err).WithContext("job", name).Build()
	}
	s.jobs[name] = job.ID()
	s.interval[name] = interval
	s.funcs[name] = fn
	s.logger.Info("Scheduled job", logfields.Job(name), slog.Duration("interval", interval))
	return nil
}

// Reschedule changes the interval of a registered job. Unknown names and
// unchanged intervals are ignored.
func (s *Scheduler) Reschedule(name string, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.jobs[name]
	if !ok || s.interval[name] == interval || interval <= 0 {
		return nil
	}
	job, err := s.scheduler.Update(id, gocron.DurationJob(interval), gocron.NewTask(s.run, name, s.funcs[name]),
		gocron.WithName(name), gocron.WithSingletonMode(gocron.LimitModeReschedule))
	if err != nil {
		return ferrors.DaemonError("failed to reschedule job").WithCause(err).WithContext("job", name).Build()
	}
	s.jobs[name] = job.ID()
	s.interval[name] = interval
	s.logger.Info("Rescheduled job", logfields.Job(name), slog.Duration("interval", interval))
	return nil
}

// Interval returns the current interval of a job.
func (s *Scheduler) Interval(name string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.interval[name]
	return d, ok
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// run is called by gocron to execute a scheduled job.
func (s *Scheduler) run(name string, fn JobFunc) {
	if s.ctx.Err() != nil {
		return
	}
	ctx := observability.WithJob(s.ctx, name)
	start := time.Now()
	s.logger.Debug("Executing scheduled job", logfields.Job(name))
	if err := fn(ctx); err != nil {
		ferrors.Log(ctx, s.logger, "Scheduled job failed", err, logfields.Job(name))
		return
	}
	s.logger.Debug("Scheduled job finished", logfields.Job(name),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}
