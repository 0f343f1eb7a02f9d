// Package ops serves the local operations endpoints: Prometheus metrics,
// a liveness probe and a JSON view of the engine state
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/kbdlightd/internal/engine"
)

// StatusSource is the part of the engine the status endpoint reads
type StatusSource interface {
	Status() engine.Status
}

// Server is the ops HTTP server
type Server struct {
	Addr    string
	router  *chi.Mux
	server  *http.Server
	status  StatusSource
	metrics http.Handler
	serving atomic.Bool
}

// NewServer creates the ops server. metrics may be nil when metrics are off
func NewServer(addr string, status StatusSource, metrics http.Handler) *Server {
	s := &Server{
		Addr:    addr,
		router:  chi.NewRouter(),
		status:  status,
		metrics: metrics,
	}
	s.serving.Store(true)

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(5 * time.Second))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/status", s.handleStatus)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetServing flips the liveness probe, e.g. to fail it during shutdown
func (s *Server) SetServing(serving bool) {
	s.serving.Store(serving)
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	log.Info().Str("addr", s.Addr).Msg("ops server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetServing(false)
	return s.server.Shutdown(ctx)
}

// StatusResponse is the /status body
type StatusResponse struct {
	Level          int       `json:"level"`
	Intent         bool      `json:"intent"`
	Enabled        bool      `json:"enabled"`
	LastActivity   time.Time `json:"last_activity"`
	IdleForSeconds float64   `json:"idle_for_seconds"`
	TimeoutSeconds float64   `json:"timeout_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !s.serving.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"stopping"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.status.Status()
	resp := StatusResponse{
		Level:          int(st.Level),
		Intent:         st.Intent,
		Enabled:        st.Enabled,
		LastActivity:   st.LastActivity.UTC(),
		IdleForSeconds: st.IdleFor.Seconds(),
		TimeoutSeconds: st.Timeout.Seconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warn().Err(err).Msg("failed to write status response")
	}
}
