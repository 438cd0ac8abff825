package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/legistrack/internal/bill"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/logfields"
	"git.home.luguber.info/inful/legistrack/internal/storage"
)

// Store owns the bill collection. Callers mutate it only through Merge and
// MarkLifecycle; readers get clones.
type Store struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu          sync.RWMutex
	entities    map[string]*bill.Entity
	lastUpdated time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open loads the collection at path. A missing file yields an empty
// collection. An unreadable or corrupt file is moved aside and also yields an
// empty collection, with a warning; Open never fails because of file content.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ferrors.ConfigError("state file path is empty").Build()
	}
	s := &Store{
		path:     path,
		logger:   slog.Default(),
		now:      time.Now,
		entities: make(map[string]*bill.Entity),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(); err != nil {
		ferrors.Log(context.Background(), s.logger, "Bill collection unreadable, starting empty", err,
			logfields.Path(path))
		s.quarantine()
		s.entities = make(map[string]*bill.Entity)
		s.lastUpdated = time.Time{}
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := storage.ReadFile(s.path)
	if err != nil {
		return ferrors.PersistenceError("read bill collection").WithCause(err).Warning().Build()
	}
	if data == nil {
		s.logger.Info("No existing bill collection, starting fresh", logfields.Path(s.path))
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return ferrors.PersistenceError("decode bill collection").WithCause(err).Warning().Build()
	}
	if upgraded := doc.upgrade(); upgraded > 0 {
		s.logger.Info("Upgraded bill records from older layout", logfields.Count(upgraded))
	}
	if t := bill.ParseOptionalTimestamp(doc.LastUpdated); t != nil {
		s.lastUpdated = *t
	}

	for _, r := range doc.Entities {
		e := fromRecord(r)
		if e.Session() == "" || e.ID() == "" {
			s.logger.Warn("Skipping stored bill without identity", logfields.Session(r.Session), logfields.BillID(r.ID))
			continue
		}
		s.entities[e.Key()] = e
	}
	s.logger.Info("Loaded bill collection", logfields.Count(len(s.entities)), logfields.Path(s.path))
	return nil
}

// quarantine keeps the unreadable file for inspection instead of overwriting it on the next save.
func (s *Store) quarantine() {
	if _, err := os.Stat(s.path); err != nil {
		return
	}
	dst := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().Unix())
	if err := os.Rename(s.path, dst); err != nil {
		s.logger.Warn("Could not move corrupt bill collection aside", logfields.Path(s.path), logfields.Error(err))
		return
	}
	s.logger.Warn("Moved corrupt bill collection aside", logfields.Path(dst))
}

// Transition describes one entity touched by a merge.
type Transition struct {
	Key     string
	Session string
	ID      string
	Title   string
	Change  bill.Change
}

// MergeReport summarizes a merge.
type MergeReport struct {
	New         int
	Changed     int
	Unchanged   int
	Skipped     int
	Transitions []Transition
}

// Add folds another report into r.
func (r *MergeReport) Add(o MergeReport) {
	r.New += o.New
	r.Changed += o.Changed
	r.Unchanged += o.Unchanged
	r.Skipped += o.Skipped
	r.Transitions = append(r.Transitions, o.Transitions...)
}

// Merge applies a batch of observations. Observations for one entity must be
// in chronological order; history is never re-sorted. Invalid records are
// skipped with a warning.
func (s *Store) Merge(ctx context.Context, batch []bill.Observation) MergeReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report MergeReport
	now := s.now()
	for _, obs := range batch {
		if err := obs.Validate(); err != nil {
			report.Skipped++
			ferrors.Log(ctx, s.logger, "Skipping bill record", err)
			continue
		}

		key := obs.Key()
		e, exists := s.entities[key]
		if !exists {
			e = bill.New(obs.Session, obs.ID)
			s.entities[key] = e
		}

		change := e.Update(obs, now)
		for _, w := range change.Warnings {
			ferrors.Log(ctx, s.logger, "Source data invariant violated",
				ferrors.InvariantViolation(w).Build(), logfields.Key(key))
		}

		switch {
		case !exists:
			report.New++
		case change.Changed:
			report.Changed++
		default:
			report.Unchanged++
			continue
		}
		report.Transitions = append(report.Transitions, Transition{
			Key:     key,
			Session: e.Session(),
			ID:      e.ID(),
			Title:   e.Title(),
			Change:  change,
		})
	}
	return report
}

// MarkLifecycle flags bills from parliaments before current that never
// received assent as having died on the order paper. It returns the keys it changed.
func (s *Store) MarkLifecycle(currentParliament int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var marked []string
	for key, e := range s.entities {
		p := e.Parliament()
		if p == 0 || p >= currentParliament {
			continue
		}
		if e.MarkDiedOnOrderPaper() {
			marked = append(marked, key)
		}
	}
	slices.Sort(marked)
	return marked
}

// Save writes the whole collection atomically under an exclusive lock.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := storage.Acquire(ctx, s.path)
	if err != nil {
		return ferrors.PersistenceError("lock bill collection").WithCause(err).WithContext("path", s.path).Build()
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			s.logger.Warn("Failed to release state lock", logfields.Error(rerr))
		}
	}()

	now := s.now()
	doc := document{
		SchemaVersion: schemaVersion,
		LastUpdated:   bill.FormatTimestamp(now),
		Entities:      make([]entityRecord, 0, len(s.entities)),
	}
	for _, key := range s.sortedKeysLocked() {
		doc.Entities = append(doc.Entities, toRecord(s.entities[key]))
	}

	if err := storage.WriteJSON(s.path, doc); err != nil {
		return ferrors.PersistenceError("save bill collection").WithCause(err).WithContext("path", s.path).Build()
	}
	s.lastUpdated = now
	s.logger.Debug("Saved bill collection", logfields.Count(len(doc.Entities)), logfields.Path(s.path))
	return nil
}

// GetEntity returns a copy of the entity with the given identity.
func (s *Store) GetEntity(session, id string) (*bill.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[bill.MakeKey(session, id)]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// FindByID returns copies of every entity with the given bill id across sessions,
// newest session first.
func (s *Store) FindByID(id string) []*bill.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*bill.Entity
	for _, e := range s.entities {
		if strings.EqualFold(e.ID(), strings.TrimSpace(id)) {
			out = append(out, e.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *bill.Entity) int {
		if c := b.Parliament() - a.Parliament(); c != 0 {
			return c
		}
		return strings.Compare(b.Session(), a.Session())
	})
	return out
}

// ListChanged returns copies of entities whose last appended snapshot is at or
// after since, oldest change first.
func (s *Store) ListChanged(since time.Time) []*bill.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*bill.Entity
	for _, e := range s.entities {
		if !e.LastChangedAt().Before(since) {
			out = append(out, e.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *bill.Entity) int {
		if c := a.LastChangedAt().Compare(b.LastChangedAt()); c != 0 {
			return c
		}
		return strings.Compare(a.Key(), b.Key())
	})
	return out
}

// List returns copies of all entities ordered by key.
func (s *Store) List() []*bill.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*bill.Entity, 0, len(s.entities))
	for _, key := range s.sortedKeysLocked() {
		out = append(out, s.entities[key].Clone())
	}
	return out
}

// Len returns the number of tracked entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// LastUpdated returns the time of the last successful save or load.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

func (s *Store) sortedKeysLocked() []string {
	keys := make([]string, 0, len(s.entities))
	for k := range s.entities {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
