package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewSQLiteStore opens or creates the journal at dbPath.
// Use ":memory:" for an in-memory journal.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, ferrors.PersistenceError("create journal directory").WithCause(err).Build()
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.PersistenceError("could not open change journal").WithCause(err).WithContext("path", dbPath).Build()
	}
	// a second connection to ":memory:" would see a different database
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.PersistenceError("failed to initialize change journal schema").WithCause(err).Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle_id TEXT NOT NULL,
		entity_key TEXT NOT NULL DEFAULT '',
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_cycle_id ON events(cycle_id);
	CREATE INDEX IF NOT EXISTS idx_entity_key ON events(entity_key);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a new event to the journal.
func (s *SQLiteStore) Append(ctx context.Context, cycleID, key, eventType string, payload []byte, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return ferrors.PersistenceError("marshal event metadata").WithCause(err).Build()
		}
	}
	if payload == nil {
		payload = []byte("{}")
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (cycle_id, entity_key, event_type, timestamp, payload, metadata) VALUES (?, ?, ?, ?, ?, ?)",
		cycleID, key, eventType, s.now().UnixMilli(), payload, metadataJSON,
	)
	if err != nil {
		return ferrors.PersistenceError("failed to append event to journal").WithCause(err).
			WithContext("event_type", eventType).Build()
	}
	return nil
}

// GetByCycle retrieves all events for one cycle.
func (s *SQLiteStore) GetByCycle(ctx context.Context, cycleID string) ([]Event, error) {
	return s.query(ctx, "WHERE cycle_id = ?", cycleID)
}

// GetByKey retrieves all events for one entity.
func (s *SQLiteStore) GetByKey(ctx context.Context, key string) ([]Event, error) {
	return s.query(ctx, "WHERE entity_key = ?", key)
}

// GetRange retrieves events within a time range.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	return s.query(ctx, "WHERE timestamp >= ? AND timestamp <= ?", start.UnixMilli(), end.UnixMilli())
}

func (s *SQLiteStore) query(ctx context.Context, where string, args ...any) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, cycle_id, entity_key, event_type, timestamp, payload, metadata FROM events "+where+" ORDER BY id",
		args...,
	)
	if err != nil {
		return nil, ferrors.PersistenceError("failed to query journal").WithCause(err).Build()
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e BaseEvent
		var ts int64
		var metadataJSON []byte

		if err := rows.Scan(&e.EventID, &e.EventCycleID, &e.EventKey, &e.EventType, &ts, &e.EventPayload, &metadataJSON); err != nil {
			return nil, ferrors.PersistenceError("failed to scan journal rows").WithCause(err).Build()
		}
		e.EventTimestamp = time.UnixMilli(ts).UTC()

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.EventMetadata); err != nil {
				return nil, ferrors.PersistenceError("unmarshal event metadata").WithCause(err).Build()
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.PersistenceError("iterate journal rows").WithCause(err).Build()
	}
	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
