package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"provenant-hq/scribe/pkg/audit"
	"provenant-hq/scribe/pkg/bundle"
	"provenant-hq/scribe/pkg/config"
	"provenant-hq/scribe/pkg/ledger/decision"
	"provenant-hq/scribe/pkg/telemetry/metrics"
	"provenant-hq/scribe/pkg/vstore"
)

// Server is the read-only compliance HTTP API. It exposes the decision
// ledger, the LLM call audit log, version bundles and the versioned
// stores for inspection; nothing it serves can modify them.
type Server struct {
	config       *config.ServerConfig
	ledger       *decision.Ledger
	audit        *audit.Service
	bundles      *bundle.Store
	stores       map[string]*vstore.Store
	metrics      *metrics.Collector
	metricsPath  string
	httpServer   *http.Server
	logger       *slog.Logger
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// Options bundles the components the server exposes.
type Options struct {
	Config  *config.ServerConfig
	Ledger  *decision.Ledger
	Audit   *audit.Service
	Bundles *bundle.Store

	// Stores maps a store name to its versioned store. Only named
	// stores are reachable over /v1/history.
	Stores map[string]*vstore.Store

	// Metrics enables the /metrics endpoint when non-nil and enabled.
	Metrics *metrics.Collector

	// MetricsPath is the metrics endpoint path (default "/metrics").
	MetricsPath string
}

// New creates a compliance API server.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("decision ledger is required")
	}
	metricsPath := opts.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	return &Server{
		config:       opts.Config,
		ledger:       opts.Ledger,
		audit:        opts.Audit,
		bundles:      opts.Bundles,
		stores:       opts.Stores,
		metrics:      opts.Metrics,
		metricsPath:  metricsPath,
		logger:       slog.Default().With("component", "server"),
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting compliance API server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("compliance API server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/integrity", s.handleIntegrity)
	mux.HandleFunc("GET /v1/decisions", s.handleDecisions)
	if s.audit != nil {
		mux.HandleFunc("GET /v1/llm-calls", s.handleLLMCalls)
	}
	if s.bundles != nil {
		mux.HandleFunc("GET /v1/bundles", s.handleBundles)
		mux.HandleFunc("GET /v1/bundles/{run_id}", s.handleBundle)
	}
	if len(s.stores) > 0 {
		mux.HandleFunc("GET /v1/history/{store}/{key}", s.handleHistory)
		mux.HandleFunc("GET /v1/history/{store}/{key}/latest", s.handleLatest)
		mux.HandleFunc("GET /v1/history/{store}/{key}/{version}", s.handleVersion)
	}
	if s.metrics.Registry() != nil {
		mux.Handle("GET "+s.metricsPath, s.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = s.loggingMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	return handler
}

// loggingMiddleware logs each request at debug level.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		s.logger.Debug("request served", "method", r.Method, "path", r.URL.Path)
	})
}

// recoveryMiddleware converts panics into 500 responses.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic", "panic", rec, "path", r.URL.Path)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
