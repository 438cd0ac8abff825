package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/report"
)

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	session := chi.URLParam(r, "session")
	id := strings.ToUpper(chi.URLParam(r, "id"))
	views := report.Lookup(s.deps.Bills, session, id, s.deps.Now())
	if len(views) == 0 {
		s.Error(w, r, ferrors.NotFoundError("bill not found").
			WithContext("session", session).WithContext("id", id).Build())
		return
	}
	s.Success(w, views[0])
}

// handleFindBills answers /bills?id=C-11 with every session that used the id.
func (s *Server) handleFindBills(w http.ResponseWriter, r *http.Request) {
	id := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("id")))
	if id == "" {
		s.Error(w, r, ferrors.ValidationError("query parameter id is required").Build())
		return
	}
	views := report.Lookup(s.deps.Bills, r.URL.Query().Get("session"), id, s.deps.Now())
	if len(views) == 0 {
		s.Error(w, r, ferrors.NotFoundError("bill not found").WithContext("id", id).Build())
		return
	}
	s.Success(w, views)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r, true)
	if err != nil {
		s.Error(w, r, err)
		return
	}
	now := s.deps.Now()
	changed := s.deps.Bills.ListChanged(since)
	views := make([]report.BillView, 0, len(changed))
	for _, e := range changed {
		views = append(views, report.View(e, now))
	}
	s.Success(w, views)
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	s.Success(w, report.Summarize(s.deps.Bills.List(), s.deps.Now()))
}

// handleDigest serves the Markdown digest, or HTML with format=html.
// Without since the last 24 hours are covered.
func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	now := s.deps.Now()
	since, err := parseSince(r, false)
	if err != nil {
		s.Error(w, r, err)
		return
	}
	if since.IsZero() {
		since = now.Add(-24 * time.Hour)
	}
	d, err := report.BuildDigest(s.deps.Bills.ListChanged(since), since, now)
	if err != nil {
		s.Error(w, r, ferrors.InternalError("failed to build digest").WithCause(err).Build())
		return
	}

	body, contentType := d.Markdown, "text/markdown; charset=utf-8"
	if strings.EqualFold(r.URL.Query().Get("format"), "html") {
		html, err := report.RenderHTML(d.Markdown)
		if err != nil {
			s.Error(w, r, ferrors.InternalError("failed to render digest").WithCause(err).Build())
			return
		}
		body, contentType = html, "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("ETag", `"`+d.Fingerprint+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cycles == nil {
		s.Error(w, r, unavailable("change journal"))
		return
	}
	s.Success(w, s.deps.Cycles.History())
}

// parseSince reads the since query parameter as RFC 3339 or a plain date.
func parseSince(r *http.Request, required bool) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("since"))
	if raw == "" {
		if required {
			return time.Time{}, ferrors.ValidationError("query parameter since is required").Build()
		}
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, ferrors.ValidationError("since must be RFC 3339 or YYYY-MM-DD").
		WithContext("since", raw).Build()
}
