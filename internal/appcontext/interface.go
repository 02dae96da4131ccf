// Package appcontext provides the application context interface shared by
// all catalogsync commands, so command packages depend on an interface
// instead of the concrete App.
package appcontext

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/catalogsync"
	"github.com/agentstation/catalogsync/internal/metrics"
	"github.com/agentstation/catalogsync/internal/server"
)

// Interface defines what commands need from the application.
type Interface interface {
	// Engine returns the import engine, building its backends lazily.
	Engine() (catalogsync.Engine, error)

	// Migrate applies the database schema. It fails without a database.
	Migrate(ctx context.Context) error

	// Metrics returns the process-wide collectors.
	Metrics() *metrics.Metrics

	// ServerConfig returns the HTTP server settings.
	ServerConfig() server.Config

	// ServerOptions returns readiness checks and other server wiring.
	ServerOptions() []server.Option

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format.
	OutputFormat() string

	Version() string
	Commit() string
	Date() string
}
