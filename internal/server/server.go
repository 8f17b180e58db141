package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/me/gosweep/internal/scheduler"
	"github.com/me/gosweep/internal/store"
)

// ProgressSource reports the progress of the running batch.
type ProgressSource interface {
	Progress() scheduler.Progress
}

// Server is the read-only status API of a running batch.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	startTime time.Time
	progress  ProgressSource
	store     store.Store // optional; nil when the ledger is disabled
	batchID   string
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithProgress sets the source of /progress.
func WithProgress(p ProgressSource) Option {
	return func(s *Server) {
		s.progress = p
	}
}

// WithLedger serves /runs and /batches from st; batchID is the current batch.
func WithLedger(st store.Store, batchID string) Option {
	return func(s *Server) {
		s.store = st
		s.batchID = batchID
	}
}

// New creates a new Server with all routes registered.
func New(logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("status server stopped")
	return nil
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)
		r.Get("/progress", s.handleProgress)
		r.Get("/runs", s.handleListRuns)

		r.Route("/batches", func(r chi.Router) {
			r.Get("/", s.handleListBatches)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetBatch)
				r.Get("/runs", s.handleListBatchRuns)
			})
		})
	})
}
