// Package server exposes the import engine over HTTP.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/catalogsync/internal/metrics"
	"github.com/agentstation/catalogsync/internal/server/events"
	"github.com/agentstation/catalogsync/internal/server/handlers"
	"github.com/agentstation/catalogsync/pkg/constants"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	engine    handlers.Engine
	metrics   *metrics.Metrics
	events    *events.Hub
	ready     map[string]handlers.ReadyFunc
	logger    *zerolog.Logger
	config    Config
	startTime time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves m on /metrics when the config enables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithEvents serves hub on {prefix}/imports/events. ListenAndServe runs
// the hub for the lifetime of the server.
func WithEvents(hub *events.Hub) Option {
	return func(s *Server) {
		s.events = hub
	}
}

// WithReadyCheck adds a named check to /ready.
func WithReadyCheck(name string, fn handlers.ReadyFunc) Option {
	return func(s *Server) {
		s.ready[name] = fn
	}
}

// New creates a server for engine. Zero config fields fall back to
// DefaultConfig.
func New(engine handlers.Engine, logger *zerolog.Logger, cfg Config, opts ...Option) *Server {
	defaults := DefaultConfig()
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = defaults.PathPrefix
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = defaults.MaxUploadSize
	}
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = defaults.AuthHeader
	}

	s := &Server{
		engine:    engine,
		ready:     make(map[string]handlers.ReadyFunc),
		logger:    logger,
		config:    cfg,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with its middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: constants.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	if s.events != nil {
		go s.events.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("API server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Dur("uptime", time.Since(s.startTime)).Msg("API server stopped")
	return nil
}
