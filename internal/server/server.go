// Package server is the thin HTTP layer over the turn orchestrator,
// profile store, and speech services.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sunnylabs/coachd/internal/config"
	"github.com/sunnylabs/coachd/internal/convo"
	"github.com/sunnylabs/coachd/internal/logger"
	"github.com/sunnylabs/coachd/internal/profile"
	"github.com/sunnylabs/coachd/internal/speech"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server hosts the HTTP API.
type Server struct {
	http   *http.Server
	logger *slog.Logger
}

// New builds the router and the HTTP server.
func New(cfg config.ServerConfig, log *slog.Logger, orch *convo.Orchestrator, store profile.Store, sp *speech.Service) *Server {
	h := &handlers{
		logger: log.With("component", "http"),
		orch:   orch,
		store:  store,
		speech: sp,
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(logger.HTTPMiddleware(h.logger))

	r.Get("/healthz", h.handleHealth)
	r.Post("/api/chat", h.handleChat)
	r.Post("/api/profile", h.handleProfile)
	r.Get("/api/profiles", h.handleProfiles)
	r.Post("/api/tts", h.handleTTS)
	r.Post("/api/transcribe", h.handleTranscribe)

	return &Server{
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		logger: h.logger,
	}
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("HTTP server stopped")
	return <-errCh
}
