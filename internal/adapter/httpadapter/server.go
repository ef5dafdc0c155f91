package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/TravisH0301/weather-analysis/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunStatus exposes the staging pipeline's state to the HTTP endpoints.
type RunStatus interface {
	sharedobs.ReadinessChecker
	LastReport() (domain.RunReport, bool)
}

// Server exposes health, readiness, last-run, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	runs       RunStatus
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /runs/last, and /metrics routes.
func NewServer(addr string, runs RunStatus, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		runs:   runs,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(runs))
	mux.HandleFunc("GET /runs/last", s.handleLastRun)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleLastRun(w http.ResponseWriter, _ *http.Request) {
	report, ok := s.runs.LastReport()
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"status": "no run yet"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}
