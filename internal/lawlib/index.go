package lawlib

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/logfields"
)

// Counts is the number of indexed laws per type.
type Counts struct {
	Acts        int `json:"acts"`
	Regulations int `json:"regulations"`
	Total       int `json:"total"`
}

// Index is the SQLite title index.
type Index struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time
}

// OpenIndex opens or creates the index at dbPath. Use ":memory:" in tests.
func OpenIndex(dbPath string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, ferrors.IndexError("create index directory").WithCause(err).Build()
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.IndexError("open law index").WithCause(err).WithContext("path", dbPath).Build()
	}
	db.SetMaxOpenConns(1)

	idx := &Index{db: db, logger: logger, now: time.Now}
	if err := idx.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.IndexError("initialize law index schema").WithCause(err).Build()
	}
	return idx, nil
}

func (x *Index) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS laws (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		title_fr TEXT,
		type TEXT NOT NULL,
		file_path TEXT NOT NULL,
		last_updated INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_title ON laws(title);
	CREATE INDEX IF NOT EXISTS idx_type ON laws(type);
	`
	_, err := x.db.Exec(schema)
	return err
}

// Close releases the database.
func (x *Index) Close() error { return x.db.Close() }

// Rebuild replaces the whole index with the XML files of the two directories.
// A missing directory contributes nothing.
func (x *Index) Rebuild(ctx context.Context, actsDir, regulationsDir string) (Counts, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return Counts{}, ferrors.IndexError("begin rebuild").WithCause(err).Build()
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM laws`); err != nil {
		return Counts{}, ferrors.IndexError("clear index").WithCause(err).Build()
	}
	var c Counts
	if c.Acts, err = x.indexDirectory(ctx, tx, actsDir, TypeAct); err != nil {
		return Counts{}, err
	}
	if c.Regulations, err = x.indexDirectory(ctx, tx, regulationsDir, TypeRegulation); err != nil {
		return Counts{}, err
	}
	if err := tx.Commit(); err != nil {
		return Counts{}, ferrors.IndexError("commit rebuild").WithCause(err).Build()
	}
	c.Total = c.Acts + c.Regulations
	x.logger.Info("Law index rebuilt", slog.Int("acts", c.Acts), slog.Int("regulations", c.Regulations))
	return c, nil
}

func (x *Index) indexDirectory(ctx context.Context, tx *sql.Tx, dir string, typ Type) (int, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.xml"))
	if err != nil {
		return 0, ferrors.IndexError("list law files").WithCause(err).Build()
	}
	if len(files) == 0 {
		x.logger.Warn("No law files found", logfields.Path(dir), slog.String("type", string(typ)))
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO laws (id, title, title_fr, type, file_path, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, ferrors.IndexError("prepare insert").WithCause(err).Build()
	}
	defer func() { _ = stmt.Close() }()

	now := x.now().UnixMilli()
	n := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			x.logger.Warn("Cannot read law file", logfields.Path(path), logfields.Error(err))
			continue
		}
		law, err := parseLaw(path, data)
		if err != nil {
			x.logger.Warn("Cannot parse law file", logfields.Path(path), logfields.Error(err))
			continue
		}
		if _, err := stmt.ExecContext(ctx, law.ID, law.Title, nullable(law.TitleFr), string(typ), law.FilePath, now); err != nil {
			return n, ferrors.IndexError("insert law").WithCause(err).WithContext("id", law.ID).Build()
		}
		n++
	}
	return n, nil
}

// Search matches query against titles, case-insensitively. An empty typ searches both types.
func (x *Index) Search(ctx context.Context, query string, typ Type) ([]Law, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	q := `SELECT id, title, title_fr, type, file_path, last_updated FROM laws WHERE title LIKE ? ESCAPE '\'`
	args := []any{pattern}
	if typ != "" {
		q += ` AND type = ?`
		args = append(args, string(typ))
	}
	q += ` ORDER BY title`

	rows, err := x.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, ferrors.IndexError("search laws").WithCause(err).Build()
	}
	defer func() { _ = rows.Close() }()

	var out []Law
	for rows.Next() {
		law, err := scanLaw(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, law)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.IndexError("iterate search results").WithCause(err).Build()
	}
	return out, nil
}

// Get returns the law with the given identifier.
func (x *Index) Get(ctx context.Context, id string) (Law, error) {
	row := x.db.QueryRowContext(ctx,
		`SELECT id, title, title_fr, type, file_path, last_updated FROM laws WHERE id = ?`, strings.TrimSpace(id))
	law, err := scanLaw(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Law{}, ferrors.NotFoundError("law not found").WithContext("id", id).Build()
	}
	return law, err
}

// Counts returns the number of indexed laws by type.
func (x *Index) Counts(ctx context.Context) (Counts, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM laws GROUP BY type`)
	if err != nil {
		return Counts{}, ferrors.IndexError("count laws").WithCause(err).Build()
	}
	defer func() { _ = rows.Close() }()

	var c Counts
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return Counts{}, ferrors.IndexError("scan count").WithCause(err).Build()
		}
		switch Type(typ) {
		case TypeAct:
			c.Acts = n
		case TypeRegulation:
			c.Regulations = n
		}
		c.Total += n
	}
	return c, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLaw(s scanner) (Law, error) {
	var (
		law     Law
		titleFr sql.NullString
		typ     string
		updated int64
	)
	if err := s.Scan(&law.ID, &law.Title, &titleFr, &typ, &law.FilePath, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Law{}, err
		}
		return Law{}, ferrors.IndexError("scan law").WithCause(err).Build()
	}
	law.TitleFr = titleFr.String
	law.Type = Type(typ)
	law.LastUpdated = time.UnixMilli(updated).UTC()
	return law, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
