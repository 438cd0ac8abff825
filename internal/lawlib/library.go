package lawlib

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/git"
	"git.home.luguber.info/inful/legistrack/internal/logfields"
)

// Repository layout of the Justice Canada XML mirror.
const (
	ActsDir        = "eng/acts"
	RegulationsDir = "eng/regulations"
)

// Library combines the repository mirror and its index.
type Library struct {
	mirror *git.Mirror
	index  *Index
	logger *slog.Logger
}

// SyncReport describes one Sync.
type SyncReport struct {
	Repo      git.SyncResult `json:"repo"`
	Reindexed bool           `json:"reindexed"`
	Counts    Counts         `json:"counts"`
}

// Stats describes the library.
type Stats struct {
	Counts Counts `json:"laws"`
	URL    string `json:"repository_url"`
	Path   string `json:"repository_path"`
	Commit string `json:"commit,omitempty"`
}

// Text is a law with its XML content.
type Text struct {
	Law
	Content []byte `json:"-"`
}

// NewLibrary wires a mirror and an index.
func NewLibrary(mirror *git.Mirror, index *Index, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{mirror: mirror, index: index, logger: logger}
}

// Index returns the underlying index.
func (l *Library) Index() *Index { return l.index }

// Sync updates the mirror and rebuilds the index when the mirror moved or
// the index is empty.
func (l *Library) Sync(ctx context.Context) (SyncReport, error) {
	var report SyncReport
	res, err := l.mirror.Sync(ctx)
	if err != nil {
		return report, err
	}
	report.Repo = res

	counts, err := l.index.Counts(ctx)
	if err != nil {
		return report, err
	}
	if !res.Changed && counts.Total > 0 {
		report.Counts = counts
		return report, nil
	}
	return l.reindex(ctx, report)
}

// Reindex rebuilds the index from the current mirror without fetching.
func (l *Library) Reindex(ctx context.Context) (SyncReport, error) {
	return l.reindex(ctx, SyncReport{})
}

func (l *Library) reindex(ctx context.Context, report SyncReport) (SyncReport, error) {
	counts, err := l.index.Rebuild(ctx,
		filepath.Join(l.mirror.Path, filepath.FromSlash(ActsDir)),
		filepath.Join(l.mirror.Path, filepath.FromSlash(RegulationsDir)))
	if err != nil {
		return report, err
	}
	report.Reindexed = true
	report.Counts = counts
	return report, nil
}

// Search finds laws whose title contains query.
func (l *Library) Search(ctx context.Context, query string, typ Type) ([]Law, error) {
	results, err := l.index.Search(ctx, query, typ)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Law search", slog.String("query", query), logfields.Count(len(results)))
	return results, nil
}

// Get returns a law and its XML by identifier.
func (l *Library) Get(ctx context.Context, id string) (Text, error) {
	law, err := l.index.Get(ctx, id)
	if err != nil {
		return Text{}, err
	}
	return l.withContent(law)
}

// GetByTitle prefers an exact (case-insensitive) title match and otherwise
// returns the first search hit.
func (l *Library) GetByTitle(ctx context.Context, title string) (Text, error) {
	results, err := l.index.Search(ctx, title, "")
	if err != nil {
		return Text{}, err
	}
	if len(results) == 0 {
		return Text{}, ferrors.NotFoundError("law not found").WithContext("title", title).Build()
	}
	pick := results[0]
	for _, r := range results {
		if strings.EqualFold(r.Title, title) {
			pick = r
			break
		}
	}
	return l.withContent(pick)
}

func (l *Library) withContent(law Law) (Text, error) {
	data, err := os.ReadFile(law.FilePath)
	if err != nil {
		return Text{Law: law}, ferrors.IndexError("read law file").WithCause(err).WithContext("path", law.FilePath).Build()
	}
	return Text{Law: law, Content: data}, nil
}

// RegulationsForAct lists regulations whose title mentions the Act.
func (l *Library) RegulationsForAct(ctx context.Context, act string) ([]Law, error) {
	return l.index.Search(ctx, act, TypeRegulation)
}

// Stats reports index counts and the mirrored commit.
func (l *Library) Stats(ctx context.Context) (Stats, error) {
	counts, err := l.index.Counts(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Counts: counts, URL: l.mirror.URL, Path: l.mirror.Path, Commit: l.mirror.Head()}, nil
}
