package appcontext

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/catalogsync"
	"github.com/agentstation/catalogsync/internal/metrics"
	"github.com/agentstation/catalogsync/internal/server"
	"github.com/agentstation/catalogsync/pkg/errors"
)

// Mock is a test double for Interface. Nil function fields fall back to
// zero values.
type Mock struct {
	EngineFunc  func() (catalogsync.Engine, error)
	MigrateFunc func(ctx context.Context) error
	MetricsVal  *metrics.Metrics
	ServerCfg   server.Config
	LoggerVal   *zerolog.Logger
	Format      string
}

var _ Interface = (*Mock)(nil)

// Engine returns EngineFunc's engine.
func (m *Mock) Engine() (catalogsync.Engine, error) {
	if m.EngineFunc != nil {
		return m.EngineFunc()
	}
	return nil, errors.NewConfigError("engine", "no engine configured", nil)
}

// Migrate calls MigrateFunc.
func (m *Mock) Migrate(ctx context.Context) error {
	if m.MigrateFunc != nil {
		return m.MigrateFunc(ctx)
	}
	return nil
}

// Metrics returns MetricsVal, creating it on first use.
func (m *Mock) Metrics() *metrics.Metrics {
	if m.MetricsVal == nil {
		m.MetricsVal = metrics.New(false)
	}
	return m.MetricsVal
}

// ServerConfig returns ServerCfg.
func (m *Mock) ServerConfig() server.Config {
	return m.ServerCfg
}

// ServerOptions returns no options.
func (m *Mock) ServerOptions() []server.Option {
	return nil
}

// Logger returns LoggerVal or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerVal != nil {
		return m.LoggerVal
	}
	nop := zerolog.Nop()
	return &nop
}

// OutputFormat returns Format.
func (m *Mock) OutputFormat() string {
	return m.Format
}

// Version returns "test".
func (m *Mock) Version() string { return "test" }

// Commit returns "none".
func (m *Mock) Commit() string { return "none" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }
