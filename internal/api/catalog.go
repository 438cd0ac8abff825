package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/lawlib"
	"git.home.luguber.info/inful/legistrack/internal/regulation"
)

func (s *Server) handleRegulations(w http.ResponseWriter, r *http.Request) {
	if s.deps.Regulations == nil {
		s.Error(w, r, unavailable("regulation tracking"))
		return
	}
	stage := regulation.Stage(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("stage"))))
	if stage != "" && !stage.Valid() {
		s.Error(w, r, ferrors.ValidationError("stage must be PROPOSED or ENACTED").
			WithContext("stage", string(stage)).Build())
		return
	}
	regs := s.deps.Regulations.Filter(stage, r.URL.Query().Get("q"))
	if regs == nil {
		regs = []regulation.Regulation{}
	}
	s.Success(w, regs)
}

func (s *Server) handleLawSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Laws == nil {
		s.Error(w, r, unavailable("law library"))
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.Error(w, r, ferrors.ValidationError("query parameter q is required").Build())
		return
	}
	var typ lawlib.Type
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, ok := lawlib.ParseType(raw)
		if !ok {
			s.Error(w, r, ferrors.ValidationError("type must be act or regulation").WithContext("type", raw).Build())
			return
		}
		typ = t
	}
	laws, err := s.deps.Laws.Search(r.Context(), q, typ)
	if err != nil {
		s.Error(w, r, err)
		return
	}
	if laws == nil {
		laws = []lawlib.Law{}
	}
	s.Success(w, laws)
}

// handleLawGet returns the law metadata, or the raw XML with format=xml.
func (s *Server) handleLawGet(w http.ResponseWriter, r *http.Request) {
	if s.deps.Laws == nil {
		s.Error(w, r, unavailable("law library"))
		return
	}
	text, err := s.deps.Laws.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.Error(w, r, err)
		return
	}
	if strings.EqualFold(r.URL.Query().Get("format"), "xml") {
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(text.Content)
		return
	}
	s.Success(w, text.Law)
}

func (s *Server) handleLawStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Laws == nil {
		s.Error(w, r, unavailable("law library"))
		return
	}
	stats, err := s.deps.Laws.Stats(r.Context())
	if err != nil {
		s.Error(w, r, err)
		return
	}
	s.Success(w, stats)
}
