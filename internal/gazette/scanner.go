package gazette

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"git.home.luguber.info/inful/legistrack/internal/fetch"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/logfields"
	"git.home.luguber.info/inful/legistrack/internal/metrics"
	"git.home.luguber.info/inful/legistrack/internal/regulation"
)

// Feed is one Gazette feed and the stage its notices represent.
type Feed struct {
	URL   string
	Stage regulation.Stage
}

// Report summarizes one scan.
type Report struct {
	Seen       int
	Added      int
	Replaced   int
	Promoted   int
	Duplicates int
	FeedErrors int
}

// Changed reports whether the scan modified the store.
func (r Report) Changed() bool { return r.Added+r.Replaced+r.Promoted > 0 }

// Scanner fetches the feeds and records their notices.
type Scanner struct {
	http     *fetch.Client
	store    *regulation.Store
	feeds    []Feed
	logger   *slog.Logger
	recorder metrics.Recorder
	now      func() time.Time
}

// NewScanner builds a Scanner. A nil recorder disables metrics.
func NewScanner(httpClient *fetch.Client, store *regulation.Store, feeds []Feed, logger *slog.Logger, recorder metrics.Recorder) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Scanner{http: httpClient, store: store, feeds: feeds, logger: logger, recorder: recorder, now: time.Now}
}

// Scan reads every feed once and saves the store when it changed. A feed that
// cannot be fetched or parsed is skipped; the scan fails only when all feeds do.
func (s *Scanner) Scan(ctx context.Context) (Report, error) {
	var report Report
	var errs []error
	for _, f := range s.feeds {
		entries, err := s.read(ctx, f)
		if err != nil {
			report.FeedErrors++
			errs = append(errs, err)
			ferrors.Log(ctx, s.logger, "Gazette feed failed", err, logfields.URL(f.URL))
			continue
		}
		for _, e := range entries {
			report.Seen++
			r := s.toRegulation(e, f.Stage)
			outcome := s.store.Add(r)
			s.recorder.IncRegulations(outcome.String())
			switch outcome {
			case regulation.Added:
				report.Added++
				s.logger.Info("New regulation",
					slog.String("name", r.Name),
					logfields.RegistrationID(r.RegistrationID),
					logfields.Stage(string(r.Stage)))
			case regulation.Replaced:
				report.Replaced++
			case regulation.Promoted:
				report.Promoted++
				s.logger.Info("Regulation enacted", slog.String("name", r.Name), logfields.RegistrationID(r.RegistrationID))
			default:
				report.Duplicates++
			}
		}
	}

	if report.Changed() {
		if err := s.store.Save(ctx); err != nil {
			return report, err
		}
	}
	s.logger.Info("Gazette scan complete",
		slog.Int("seen", report.Seen),
		slog.Int("added", report.Added),
		slog.Int("promoted", report.Promoted),
		logfields.Count(s.store.Len()))

	if len(s.feeds) > 0 && report.FeedErrors == len(s.feeds) {
		return report, errors.Join(errs...)
	}
	return report, nil
}

func (s *Scanner) read(ctx context.Context, f Feed) ([]Entry, error) {
	start := time.Now()
	body, err := s.http.Get(ctx, f.URL, false)
	s.recorder.ObserveFetch("gazette", time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}
	entries, err := ParseFeed(body)
	if err != nil {
		return nil, ferrors.TransportError("malformed Gazette feed").
			WithCause(err).
			WithRetry(ferrors.RetryNever).
			WithContext("url", f.URL).
			Build()
	}
	return entries, nil
}

func (s *Scanner) toRegulation(e Entry, stage regulation.Stage) regulation.Regulation {
	title := e.Title
	if title == "" {
		title = "Unknown Title"
	}
	full := title + " " + e.Description
	return regulation.Regulation{
		Name:           regulation.CleanName(title),
		RegistrationID: regulation.ExtractRegistrationID(full),
		Published:      s.parseDate(e.Published),
		Stage:          stage,
		Sponsor:        regulation.ExtractSponsor(e.Author, e.Description),
		EnablingAct:    regulation.ExtractEnablingAct(full),
		Link:           e.Link,
		RawTitle:       title,
	}
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC3339,
	"2006-01-02",
}

// parseDate falls back to the scan time for dates in no known layout.
func (s *Scanner) parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	if v != "" {
		s.logger.Warn("Unparsable Gazette date, using scan time", slog.String("date", v))
	}
	return s.now().UTC()
}
