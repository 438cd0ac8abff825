package regulation

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

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/logfields"
	"git.home.luguber.info/inful/legistrack/internal/storage"
)

// Outcome is the result of adding one regulation.
type Outcome int

const (
	Duplicate Outcome = iota
	Added
	Replaced // an unidentified record gave way to one carrying a registration number
	Promoted // a proposed regulation was seen again as enacted
)

func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case Replaced:
		return "replaced"
	case Promoted:
		return "promoted"
	default:
		return "duplicate"
	}
}

// Store keeps deduplicated regulations and persists them as a flat JSON list.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	byKey   map[string]*Regulation
	byTitle map[string]string // title key -> identity key
}

// Open loads the list at path. Missing or unreadable files yield an empty store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ferrors.ConfigError("regulations file path is empty").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:    path,
		logger:  logger,
		byKey:   make(map[string]*Regulation),
		byTitle: make(map[string]string),
	}

	data, err := storage.ReadFile(path)
	if err != nil {
		return nil, ferrors.PersistenceError("read regulations").WithCause(err).WithContext("path", path).Build()
	}
	if data == nil {
		return s, nil
	}
	var list []Regulation
	if err := json.Unmarshal(data, &list); err != nil {
		ferrors.Log(context.Background(), logger, "Regulations file unreadable, starting empty",
			ferrors.PersistenceError("decode regulations").WithCause(err).Warning().Build(), logfields.Path(path))
		dst := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
		if rerr := os.Rename(path, dst); rerr != nil {
			logger.Warn("Could not move corrupt regulations file aside", logfields.Error(rerr))
		}
		return s, nil
	}
	for _, r := range list {
		s.Add(r)
	}
	logger.Info("Loaded regulations", logfields.Count(len(s.byKey)), logfields.Path(path))
	return s, nil
}

// Add merges r into the store. Records without a registration number never
// replace a record that has one.
func (s *Store) Add(r Regulation) Outcome {
	r.RegistrationID = strings.ToUpper(strings.TrimSpace(r.RegistrationID))
	titleKey := TitleKey(r.titleForKey())

	s.mu.Lock()
	defer s.mu.Unlock()

	key := r.Key()
	if existing, ok := s.byKey[key]; ok {
		return s.promote(existing, r)
	}

	if prevKey, ok := s.byTitle[titleKey]; ok {
		prev := s.byKey[prevKey]
		switch {
		case !r.Identified():
			return s.promote(prev, r)
		case !prev.Identified():
			delete(s.byKey, prevKey)
			s.byKey[key] = &r
			s.byTitle[titleKey] = key
			return Replaced
		}
		// Distinct registrations may share a title.
	}

	s.byKey[key] = &r
	s.byTitle[titleKey] = key
	return Added
}

func (s *Store) promote(existing *Regulation, r Regulation) Outcome {
	if existing.Stage == StageProposed && r.Stage == StageEnacted {
		existing.Stage = StageEnacted
		existing.Published = r.Published
		if r.Link != "" {
			existing.Link = r.Link
		}
		return Promoted
	}
	return Duplicate
}

// Get returns the regulation with the given registration number.
func (s *Store) Get(registrationID string) (Regulation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byKey["id:"+strings.ToUpper(strings.TrimSpace(registrationID))]
	if !ok {
		return Regulation{}, false
	}
	return *r, true
}

// List returns all regulations, newest first.
func (s *Store) List() []Regulation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Regulation, 0, len(s.byKey))
	for _, r := range s.byKey {
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b Regulation) int {
		if c := b.Published.Compare(a.Published); c != 0 {
			return c
		}
		return strings.Compare(a.Key(), b.Key())
	})
	return out
}

// Filter returns regulations in the given stage whose name or enabling act
// contains query (case-insensitive). Empty arguments match everything.
func (s *Store) Filter(stage Stage, query string) []Regulation {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Regulation
	for _, r := range s.List() {
		if stage != "" && r.Stage != stage {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(r.Name), q) &&
			!strings.Contains(strings.ToLower(r.EnablingAct), q) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Len returns the number of regulations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// Save writes the list atomically.
func (s *Store) Save(ctx context.Context) error {
	list := s.List()

	lock, err := storage.Acquire(ctx, s.path)
	if err != nil {
		return ferrors.PersistenceError("lock regulations").WithCause(err).WithContext("path", s.path).Build()
	}
	defer func() { _ = lock.Release() }()

	if err := storage.WriteJSON(s.path, list); err != nil {
		return ferrors.PersistenceError("save regulations").WithCause(err).WithContext("path", s.path).Build()
	}
	s.logger.Debug("Saved regulations", logfields.Count(len(list)), logfields.Path(s.path))
	return nil
}
