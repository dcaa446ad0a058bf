// Package server exposes the review pipeline over HTTP with a live
// event stream.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cadre-oss/reqcheck/internal/config"
	"github.com/cadre-oss/reqcheck/internal/provider"
	"github.com/cadre-oss/reqcheck/internal/state"
	"github.com/cadre-oss/reqcheck/internal/telemetry"
)

// Options configures New.
type Options struct {
	Version string
	// Model replaces the configured provider. Used by tests.
	Model provider.Invoker
	// LogOutput receives the logs of each review. Defaults to stderr.
	LogOutput io.Writer
}

// Server is the reqcheck HTTP API server.
type Server struct {
	cfg      *config.Config
	opts     Options
	stateMgr *state.Manager
	broker   *Broker
	logger   *telemetry.Logger

	// slot admits one review at a time since reviews share stateMgr.
	slot chan struct{}

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// New creates a server. Run history is shared by every review and left
// open; the caller closes stateMgr.
func New(cfg *config.Config, stateMgr *state.Manager, logger *telemetry.Logger, opts Options) *Server {
	return &Server{
		cfg:      cfg,
		opts:     opts,
		stateMgr: stateMgr,
		broker:   NewBroker(logger),
		logger:   logger,
		slot:     make(chan struct{}, 1),
		active:   make(map[string]context.CancelFunc),
	}
}

// Handler returns the API routes wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.setupRoutes())
}

// Start serves on addr and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting reqcheck API", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server...")
		s.cancelAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/roles", s.handleListRoles)

	mux.HandleFunc("POST /api/reviews", s.handleReview)

	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)

	mux.HandleFunc("GET /api/events", s.handleSSEEvents)
	mux.HandleFunc("GET /api/events/{runID}", s.handleSSEEventsFiltered)

	return mux
}

func (s *Server) track(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.active[id] = cancel
	s.mu.Unlock()
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}

func (s *Server) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.active {
		cancel()
	}
}

// corsMiddleware adds CORS headers for browser clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
