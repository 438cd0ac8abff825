package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/legistrack/internal/bill"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/logfields"
	"git.home.luguber.info/inful/legistrack/internal/metrics"
	"git.home.luguber.info/inful/legistrack/internal/notify"
	"git.home.luguber.info/inful/legistrack/internal/observability"
	"git.home.luguber.info/inful/legistrack/internal/state"
)

// Phase is the loop's current state.
type Phase string

const (
	PhaseInit        Phase = "INIT"
	PhaseBackfill    Phase = "BACKFILL"
	PhaseSteady      Phase = "STEADY"
	PhaseFailedFetch Phase = "FAILED_FETCH"
)

// finalSaveTimeout bounds the persist that runs after cancellation.
const finalSaveTimeout = 30 * time.Second

// Config holds everything the loop needs to know. It is passed explicitly;
// there is no package-level state.
type Config struct {
	PollInterval      time.Duration
	FailureCooldown   time.Duration
	BackfillDelay     time.Duration
	Partitions        []Partition
	MinEntities       int
	DisableBackfill   bool
	ForceBackfill     bool
	CurrentParliament int
}

// Status is a point-in-time view of the loop for health reporting.
type Status struct {
	Phase         Phase
	Cycles        int
	LastCycleID   string
	LastSuccessAt time.Time
	LastError     string
}

// BackfillReport summarizes a historical backfill.
type BackfillReport struct {
	state.MergeReport
	Fetched []Partition // partitions that returned records
	Ended   []Partition // partitions that ended their parliament's enumeration
	Retired []string
}

// Loop is the tracker control loop. RunPollCycle and RunBackfill are
// serialized; Run drives them on a timer.
type Loop struct {
	cfg      Config
	fetcher  Fetcher
	store    *state.Store
	notifier notify.Notifier
	logger   *slog.Logger
	recorder metrics.Recorder
	now      func() time.Time
	newID    func() string

	cycleMu sync.Mutex

	mu     sync.RWMutex
	status Status
}

// Option customizes a Loop.
type Option func(*Loop)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(lp *Loop) {
		if r != nil {
			lp.recorder = r
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(lp *Loop) {
		if now != nil {
			lp.now = now
		}
	}
}

// New constructs a Loop. A nil notifier discards changes.
func New(cfg Config, fetcher Fetcher, store *state.Store, notifier notify.Notifier, opts ...Option) *Loop {
	if notifier == nil {
		notifier = notify.Multi{}
	}
	lp := &Loop{
		cfg:      cfg,
		fetcher:  fetcher,
		store:    store,
		notifier: notifier,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		status:   Status{Phase: PhaseInit},
	}
	for _, opt := range opts {
		opt(lp)
	}
	lp.recorder.SetPhase(string(PhaseInit))
	return lp
}

// Phase returns the current phase.
func (l *Loop) Phase() Phase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status.Phase
}

// Status returns a copy of the loop status.
func (l *Loop) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// UpdateIntervals replaces the poll interval and failure cooldown. The new
// values apply from the next idle period.
func (l *Loop) UpdateIntervals(poll, cooldown time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if poll > 0 {
		l.cfg.PollInterval = poll
	}
	if cooldown > 0 {
		l.cfg.FailureCooldown = cooldown
	}
}

func (l *Loop) intervals() (poll, cooldown time.Duration) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg.PollInterval, l.cfg.FailureCooldown
}

func (l *Loop) setPhase(p Phase) {
	l.mu.Lock()
	prev := l.status.Phase
	l.status.Phase = p
	l.mu.Unlock()
	if prev != p {
		l.logger.Info("Tracker phase changed", logfields.Phase(string(p)), slog.String("from", string(prev)))
	}
	l.recorder.SetPhase(string(p))
}

func (l *Loop) recordCycle(cycleID string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.Cycles++
	l.status.LastCycleID = cycleID
	if err != nil {
		l.status.LastError = err.Error()
		return
	}
	l.status.LastError = ""
	l.status.LastSuccessAt = l.now()
}

// NeedsBackfill reports whether Run would start with a historical backfill.
func (l *Loop) NeedsBackfill() bool {
	if l.cfg.ForceBackfill {
		return true
	}
	return !l.cfg.DisableBackfill && l.store.Len() < l.cfg.MinEntities
}

// Run drives the loop until ctx is canceled. A cycle in progress completes
// its merge; one final save then runs on a fresh context.
func (l *Loop) Run(ctx context.Context) error {
	l.setPhase(PhaseInit)
	l.logger.Info("Tracker starting",
		logfields.Count(l.store.Len()),
		slog.Int("current_parliament", l.cfg.CurrentParliament))

	defer l.finalSave()

	if l.NeedsBackfill() {
		l.setPhase(PhaseBackfill)
		if _, err := l.RunBackfill(ctx, l.cfg.Partitions, l.cfg.ForceBackfill); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			ferrors.Log(ctx, l.logger, "Backfill failed", err)
		}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		l.setPhase(PhaseSteady)
		_, err := l.RunPollCycle(ctx)
		poll, cooldown := l.intervals()
		wait := poll
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if ferrors.HasCategory(err, ferrors.CategoryTransport) {
				l.setPhase(PhaseFailedFetch)
			}
			ferrors.Log(ctx, l.logger, "Poll cycle failed, cooling down", err,
				slog.Duration("cooldown", cooldown))
			wait = cooldown
		} else {
			l.logger.Info("Next poll scheduled", slog.Duration("in", wait))
		}
		if !sleep(ctx, wait) {
			return nil
		}
	}
}

func (l *Loop) finalSave() {
	ctx, cancel := context.WithTimeout(context.Background(), finalSaveTimeout)
	defer cancel()
	if err := l.store.Save(ctx); err != nil {
		ferrors.Log(ctx, l.logger, "Final save failed", err)
		return
	}
	l.logger.Info("Tracker stopped, collection saved", logfields.Count(l.store.Len()))
}

// RunPollCycle fetches the current bill list, keeps the current parliament's
// bills, merges them, runs the lifecycle pass, persists and notifies.
func (l *Loop) RunPollCycle(ctx context.Context) (state.MergeReport, error) {
	l.cycleMu.Lock()
	defer l.cycleMu.Unlock()

	cycleID := l.newID()
	start := l.now()
	mode := notify.ModePoll
	ctx = observability.WithCycle(ctx, cycleID, string(mode))
	logger := l.logger.With(logfields.CycleID(cycleID))
	l.cycleStarted(ctx, cycleID, mode, nil)

	fetchStart := time.Now()
	obs, err := l.fetcher.FetchCurrent(ctx)
	l.recorder.ObserveFetch("legisinfo", time.Since(fetchStart), err == nil)
	if err != nil {
		l.fail(ctx, cycleID, mode, "fetch", err)
		return state.MergeReport{}, err
	}
	obs = l.currentOnly(obs)
	logger.Debug("Fetched current bills", logfields.Count(len(obs)))

	report := l.store.Merge(ctx, obs)
	retired := l.lifecycle()

	// A canceled parent must not abort the persist of a completed merge.
	if err := l.store.Save(context.WithoutCancel(ctx)); err != nil {
		l.fail(ctx, cycleID, mode, "persist", err)
		return report, err
	}

	l.finish(ctx, cycleID, mode, start, report, retired)
	logger.Info("Poll cycle complete",
		slog.Int("new", report.New),
		slog.Int("changed", report.Changed),
		slog.Int("unchanged", report.Unchanged),
		slog.Int("skipped", report.Skipped),
		slog.Int("retired", len(retired)),
		logfields.DurationMS(float64(l.now().Sub(start).Milliseconds())))
	return report, nil
}

// RunBackfill walks partitions oldest first. Unless force is set, it does
// nothing when the collection already holds MinEntities bills. A partition
// that is not found or returns no records ends the enumeration of its
// parliament. A retryable fetch failure cools down in FAILED_FETCH and
// retries the same partition; any other failure stops the backfill and is
// returned. Requests are spaced by BackfillDelay. The collection is saved
// once at the end, including on cancellation or failure.
func (l *Loop) RunBackfill(ctx context.Context, partitions []Partition, force bool) (BackfillReport, error) {
	l.cycleMu.Lock()
	defer l.cycleMu.Unlock()

	var out BackfillReport
	if !force && l.store.Len() >= l.cfg.MinEntities {
		l.logger.Info("Skipping backfill, collection already populated", logfields.Count(l.store.Len()))
		return out, nil
	}

	cycleID := l.newID()
	start := l.now()
	mode := notify.ModeBackfill
	ctx = observability.WithCycle(ctx, cycleID, string(mode))
	logger := l.logger.With(logfields.CycleID(cycleID))
	names := make([]string, len(partitions))
	for i, p := range partitions {
		names[i] = p.String()
	}
	l.cycleStarted(ctx, cycleID, mode, names)
	logger.Info("Starting historical backfill", logfields.Count(len(partitions)))

	ended := map[int]bool{}
	requests := 0
	var cancelErr, fetchErr error
	for _, p := range partitions {
		if ended[p.Parliament] {
			continue
		}
		if requests > 0 && !sleep(ctx, l.cfg.BackfillDelay) {
			cancelErr = ctx.Err()
			break
		}
		requests++

		plog := logger.With(logfields.Partition(p.String()))
		pctx := observability.WithPartition(ctx, p.String())
		obs, err := l.fetchPartition(pctx, plog, p)
		switch {
		case err != nil && ctx.Err() != nil:
			cancelErr = ctx.Err()
		case err != nil && ferrors.HasCategory(err, ferrors.CategoryNotFound):
			plog.Info("Partition not found, ending parliament")
		case err != nil:
			ferrors.Log(pctx, plog, "Partition fetch failed, stopping backfill", err)
			fetchErr = err
		case len(obs) == 0:
			plog.Info("Partition empty, ending parliament")
		default:
			out.MergeReport.Add(l.store.Merge(pctx, obs))
			out.Fetched = append(out.Fetched, p)
			plog.Info("Partition merged", logfields.Count(len(obs)))
			continue
		}
		if cancelErr != nil || fetchErr != nil {
			break
		}
		ended[p.Parliament] = true
		out.Ended = append(out.Ended, p)
	}

	out.Retired = l.lifecycle()
	if err := l.store.Save(context.WithoutCancel(ctx)); err != nil {
		l.fail(ctx, cycleID, mode, "persist", err)
		return out, err
	}
	if cancelErr != nil {
		l.fail(ctx, cycleID, mode, "backfill", cancelErr)
		return out, cancelErr
	}
	if fetchErr != nil {
		l.fail(ctx, cycleID, mode, "fetch", fetchErr)
		return out, fetchErr
	}

	l.finish(ctx, cycleID, mode, start, out.MergeReport, out.Retired)
	logger.Info("Historical backfill complete",
		slog.Int("partitions", len(out.Fetched)),
		slog.Int("new", out.New),
		slog.Int("changed", out.Changed),
		logfields.Count(l.store.Len()),
		logfields.DurationMS(float64(l.now().Sub(start).Milliseconds())))
	return out, nil
}

// fetchPartition fetches one partition. While the failure is a retryable
// transport error it idles in FAILED_FETCH for the failure cooldown, or the
// server's Retry-After when longer, and asks again.
func (l *Loop) fetchPartition(ctx context.Context, logger *slog.Logger, p Partition) ([]bill.Observation, error) {
	for {
		fetchStart := time.Now()
		obs, err := l.fetcher.FetchPartition(ctx, p)
		l.recorder.ObserveFetch("legisinfo", time.Since(fetchStart), err == nil)
		if err == nil || ctx.Err() != nil {
			return obs, err
		}
		classified, ok := ferrors.AsClassified(err)
		if !ok || classified.Category() != ferrors.CategoryTransport || !classified.CanRetry() {
			return nil, err
		}
		_, cooldown := l.intervals()
		if after, ok := classified.RetryAfter(); ok && after > cooldown {
			cooldown = after
		}
		l.setPhase(PhaseFailedFetch)
		ferrors.Log(ctx, logger, "Partition fetch failed, cooling down", err,
			slog.Duration("cooldown", cooldown))
		if !sleep(ctx, cooldown) {
			return nil, ctx.Err()
		}
		l.setPhase(PhaseBackfill)
	}
}

func (l *Loop) currentOnly(obs []bill.Observation) []bill.Observation {
	if l.cfg.CurrentParliament <= 0 {
		return obs
	}
	out := obs[:0:0]
	for _, o := range obs {
		if bill.Parliament(o.Session) == l.cfg.CurrentParliament {
			out = append(out, o)
		}
	}
	return out
}

func (l *Loop) lifecycle() []string {
	if l.cfg.CurrentParliament <= 0 {
		return nil
	}
	return l.store.MarkLifecycle(l.cfg.CurrentParliament)
}

func (l *Loop) cycleStarted(ctx context.Context, cycleID string, mode notify.Mode, partitions []string) {
	if o, ok := l.notifier.(notify.CycleObserver); ok {
		o.CycleStarted(ctx, cycleID, mode, partitions)
	}
}

func (l *Loop) fail(ctx context.Context, cycleID string, mode notify.Mode, phase string, err error) {
	result := metrics.ResultFailed
	if errors.Is(err, context.Canceled) {
		result = metrics.ResultCanceled
	}
	l.recorder.IncCycleOutcome(string(mode), result)
	l.recordCycle(cycleID, err)
	if o, ok := l.notifier.(notify.CycleObserver); ok {
		o.CycleFailed(context.WithoutCancel(ctx), cycleID, mode, phase, err)
	}
}

func (l *Loop) finish(ctx context.Context, cycleID string, mode notify.Mode, start time.Time, report state.MergeReport, retired []string) {
	finished := l.now()
	l.recorder.ObserveCycleDuration(string(mode), finished.Sub(start))
	l.recorder.IncCycleOutcome(string(mode), metrics.ResultSuccess)
	l.recorder.AddMergeResults(string(mode), report.New, report.Changed, report.Unchanged, report.Skipped)
	l.recorder.SetTrackedEntities(l.store.Len())
	l.recordCycle(cycleID, nil)

	batch := notify.Batch{
		CycleID:    cycleID,
		Mode:       mode,
		StartedAt:  start,
		FinishedAt: finished,
		New:        report.New,
		Changed:    report.Changed,
		Unchanged:  report.Unchanged,
		Skipped:    report.Skipped,
		Retired:    retired,
		Changes:    changesFor(mode, report.Transitions),
	}
	for _, c := range batch.Changes {
		if c.Kind == bill.ChangeStage {
			l.recorder.IncStageTransition(string(c.FromStage), string(c.ToStage))
		}
	}
	if err := l.notifier.Notify(context.WithoutCancel(ctx), batch); err != nil {
		ferrors.Log(ctx, l.logger, "Change notification failed",
			ferrors.NotifyError("deliver change batch").WithCause(err).Build(),
			logfields.CycleID(cycleID))
	}
}

// changesFor converts merge transitions into notifications. Backfill does
// not announce bills it is seeing for the first time.
func changesFor(mode notify.Mode, transitions []state.Transition) []notify.Change {
	out := make([]notify.Change, 0, len(transitions))
	for _, t := range transitions {
		if !t.Change.Changed {
			continue
		}
		if mode == notify.ModeBackfill && t.Change.Kind == bill.ChangeNew {
			continue
		}
		snap := t.Change.Snapshot
		out = append(out, notify.Change{
			Kind:       t.Change.Kind,
			Key:        t.Key,
			Session:    t.Session,
			ID:         t.ID,
			Title:      t.Title,
			FromStage:  t.Change.FromStage,
			ToStage:    t.Change.ToStage,
			StatusText: snap.StatusText(),
			Chamber:    snap.Chamber(),
			At:         snap.Timestamp(),
		})
	}
	return out
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
