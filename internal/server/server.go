package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"yieldwatcher/internal/storage"
)

// YieldService is the orchestration surface the HTTP layer depends on.
type YieldService interface {
	SeedHistoricalYields(ctx context.Context) (int, error)
	UpdateRecentYields(ctx context.Context) (int, error)
	GetYields(ctx context.Context, startDate, endDate string) ([]storage.YieldRow, error)
}

// Options parameterise the HTTP server.
type Options struct {
	Addr string
	// RefreshSecret protects GET /yields/update. Empty disables the check.
	RefreshSecret string
}

// Server exposes the yield endpoints over HTTP.
type Server struct {
	opts   Options
	svc    YieldService
	logger zerolog.Logger
}

// New constructs the HTTP server.
func New(opts Options, svc YieldService, logger zerolog.Logger) *Server {
	return &Server{
		opts:   opts,
		svc:    svc,
		logger: logger.With().Str("component", "http_server").Logger(),
	}
}

// Handler builds the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /yields", s.handleGetYields)
	mux.HandleFunc("POST /yields/seed", s.handleSeed)
	mux.HandleFunc("GET /yields/update", s.handleUpdate)
	return mux
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info().Str("addr", s.opts.Addr).Msg("http server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleGetYields(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	rows, err := s.svc.GetYields(r.Context(), start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	written, err := s.svc.SeedHistoricalYields(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "rowsWritten": written})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if secret := s.opts.RefreshSecret; secret != "" {
		auth := r.Header.Get("Authorization")
		if !authorized(auth, secret) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
			return
		}
	}

	written, err := s.svc.UpdateRecentYields(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "rowsWritten": written})
}

func authorized(header, secret string) bool {
	return strings.TrimSpace(header) == "Bearer "+secret
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
