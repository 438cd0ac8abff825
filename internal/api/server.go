package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/legistrack/internal/eventstore"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/lawlib"
	"git.home.luguber.info/inful/legistrack/internal/regulation"
	"git.home.luguber.info/inful/legistrack/internal/state"
	"git.home.luguber.info/inful/legistrack/internal/tracker"
)

// StatusProvider reports the tracker loop state.
type StatusProvider interface {
	Status() tracker.Status
}

// Deps are the read models the API serves. Only Bills is required; routes
// backed by a nil dependency answer 404.
type Deps struct {
	Bills       *state.Store
	Regulations *regulation.Store
	Laws        *lawlib.Library
	Cycles      *eventstore.CycleHistoryProjection
	Tracker     StatusProvider
	Metrics     http.Handler
	Logger      *slog.Logger
	Now         func() time.Time
}

// Server represents the API server.
type Server struct {
	Addr   string
	deps   Deps
	router *chi.Mux
	server *http.Server
	errs   *ferrors.HTTPErrorAdapter
	logger *slog.Logger
}

// NewServer creates a new API server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{
		Addr:   addr,
		deps:   deps,
		router: chi.NewRouter(),
		errs:   ferrors.NewHTTPErrorAdapter(deps.Logger),
		logger: deps.Logger,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Get("/healthz", s.handleHealth)

	s.router.Get("/bills", s.handleFindBills)
	s.router.Get("/bills/{session}/{id}", s.handleGetBill)
	s.router.Get("/changes", s.handleChanges)
	s.router.Get("/summary", s.handleSummary)
	s.router.Get("/digest", s.handleDigest)
	s.router.Get("/cycles", s.handleCycles)

	s.router.Get("/regulations", s.handleRegulations)

	s.router.Route("/laws", func(r chi.Router) {
		r.Get("/search", s.handleLawSearch)
		r.Get("/stats", s.handleLawStats)
		r.Get("/{id}", s.handleLawGet)
	})

	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics)
	}
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("API listening", slog.String("addr", s.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return ferrors.DaemonError("API server failed").WithCause(err).WithContext("addr", s.Addr).Build()
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Response represents a standard API response.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Error writes a classified error as a failed Response.
func (s *Server) Error(w http.ResponseWriter, r *http.Request, err error) {
	status := s.errs.StatusCodeFor(err)
	body := s.errs.FormatErrorResponse(err)
	writeJSON(w, status, Response{Success: false, Error: body.Error, Code: body.Code})
	if status >= http.StatusInternalServerError {
		s.logger.Error("API request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	}
}

// Success writes a success response.
func (s *Server) Success(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func unavailable(what string) error {
	return ferrors.NotFoundError(what + " is not enabled").Build()
}

type healthResponse struct {
	Status        string     `json:"status"`
	Phase         string     `json:"phase,omitempty"`
	Cycles        int        `json:"cycles"`
	LastCycleID   string     `json:"last_cycle_id,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	Bills         int        `json:"bills"`
	LastUpdated   *time.Time `json:"last_updated,omitempty"`
	Regulations   *int       `json:"regulations,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "healthy", Bills: s.deps.Bills.Len()}
	if t := s.deps.Bills.LastUpdated(); !t.IsZero() {
		resp.LastUpdated = &t
	}
	if s.deps.Tracker != nil {
		st := s.deps.Tracker.Status()
		resp.Phase = string(st.Phase)
		resp.Cycles = st.Cycles
		resp.LastCycleID = st.LastCycleID
		resp.LastError = st.LastError
		if !st.LastSuccessAt.IsZero() {
			resp.LastSuccessAt = &st.LastSuccessAt
		}
		if st.Phase == tracker.PhaseFailedFetch {
			resp.Status = "degraded"
		}
	}
	if s.deps.Regulations != nil {
		n := s.deps.Regulations.Len()
		resp.Regulations = &n
	}
	writeJSON(w, http.StatusOK, resp)
}
