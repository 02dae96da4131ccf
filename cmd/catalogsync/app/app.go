// Package app wires configuration, logging and the import engine's
// backends together for the catalogsync CLI.
package app

import (
	"context"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/agentstation/catalogsync"
	"github.com/agentstation/catalogsync/internal/appcontext"
	"github.com/agentstation/catalogsync/internal/countcache"
	"github.com/agentstation/catalogsync/internal/metrics"
	"github.com/agentstation/catalogsync/internal/postgres"
	"github.com/agentstation/catalogsync/internal/server"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/catalog/memory"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/runs"
	"github.com/agentstation/catalogsync/pkg/vendors"
)

var _ appcontext.Interface = (*App)(nil)

// App holds the CLI's configuration and lazily built dependencies.
type App struct {
	version string
	commit  string
	date    string

	config  *Config
	logger  *zerolog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	engine catalogsync.Engine
	db     *postgres.DB
	redis  *redis.Client
}

// Option configures an App.
type Option func(*App) error

// WithConfig replaces the loaded configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if config == nil {
			return errors.NewValidationError("config", nil, "cannot be nil")
		}
		a.config = config
		return nil
	}
}

// WithLogger replaces the configured logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithEngine injects a ready engine, skipping backend construction.
func WithEngine(engine catalogsync.Engine) Option {
	return func(a *App) error {
		a.engine = engine
		return nil
	}
}

// New loads the configuration and creates the App.
func New(version, commit, date string, opts ...Option) (*App, error) {
	config, err := LoadConfig("")
	if err != nil {
		return nil, err
	}

	a := &App{
		version: version,
		commit:  commit,
		date:    date,
		config:  config,
		metrics: metrics.New(true),
	}
	logger := NewLogger(config)
	a.logger = &logger

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Version returns the version string.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// Metrics returns the process-wide collectors.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// OutputFormat returns the --format value.
func (a *App) OutputFormat() string { return a.config.Format }

// ServerConfig returns the HTTP server settings.
func (a *App) ServerConfig() server.Config { return a.config.Server }

// ServerOptions wires metrics and a readiness check per connected backend.
func (a *App) ServerOptions() []server.Option {
	opts := []server.Option{server.WithMetrics(a.metrics)}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db != nil {
		opts = append(opts, server.WithReadyCheck("postgres", a.db.Ping))
	}
	if a.redis != nil {
		client := a.redis
		opts = append(opts, server.WithReadyCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
	}
	return opts
}

// Engine returns the import engine, connecting its backends on first use.
func (a *App) Engine() (catalogsync.Engine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.engine != nil {
		return a.engine, nil
	}

	ctx := context.Background()
	store, directory, ledger, err := a.backends(ctx)
	if err != nil {
		return nil, err
	}

	engine, err := catalogsync.New(store, directory,
		catalogsync.WithLedger(ledger),
		catalogsync.WithTouchUnchanged(a.config.TouchUnchanged),
		catalogsync.WithImportTimeout(a.config.ImportTimeout),
		catalogsync.WithRemoteObserver(a.metrics.ObserveRemoteRequest),
	)
	if err != nil {
		return nil, errors.WrapResource("create", "engine", "", err)
	}
	engine.OnRunFinished(a.metrics.ObserveRun)

	a.engine = engine
	return engine, nil
}

// backends picks Postgres when a database URL is configured and the
// in-memory implementations otherwise. Must be called with a.mu held.
func (a *App) backends(ctx context.Context) (catalog.Store, catalog.VendorDirectory, runs.Ledger, error) {
	var fileVendors *vendors.Directory
	if a.config.VendorsFile != "" {
		d, err := vendors.LoadFile(a.config.VendorsFile)
		if err != nil {
			return nil, nil, nil, err
		}
		fileVendors = d
	}

	if a.config.DatabaseURL == "" {
		a.logger.Warn().Msg("No database configured; the catalog is kept in memory for this process only")
		var directory catalog.VendorDirectory = memory.NewVendors()
		if fileVendors != nil {
			directory = fileVendors
		}
		return a.withCountCache(ctx, memory.New()), directory, runs.NewMemoryLedger(), nil
	}

	db, err := a.connectDB(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	if fileVendors != nil {
		// entries reference vendors, so file vendors are mirrored first
		for _, v := range fileVendors.List() {
			if err := db.Vendors().Upsert(ctx, v); err != nil {
				return nil, nil, nil, err
			}
		}
		a.logger.Debug().Int("vendors", len(fileVendors.List())).Msg("Vendors file synced to database")
	}
	return a.withCountCache(ctx, db.Entries()), vendors.NewCached(db.Vendors(), a.config.VendorCacheTTL), db.Runs(), nil
}

func (a *App) connectDB(ctx context.Context) (*postgres.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := postgres.Connect(ctx, a.config.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

// withCountCache mirrors cached counts into Redis when it is configured
// and reachable. An unreachable Redis is logged and skipped.
func (a *App) withCountCache(ctx context.Context, store catalog.Store) catalog.Store {
	if a.config.Redis.Addr == "" {
		return store
	}
	client, err := countcache.Connect(ctx, a.config.Redis)
	if err != nil {
		a.logger.Warn().Err(err).Str("addr", a.config.Redis.Addr).Msg("Redis unavailable; active counts stay in the store only")
		return store
	}
	a.redis = client
	return countcache.New(store, client)
}

// Migrate applies the database schema.
func (a *App) Migrate(ctx context.Context) error {
	if a.config.DatabaseURL == "" {
		return errors.NewConfigError("database", "set "+EnvPrefix+"_DATABASE_URL or database_url to migrate", nil)
	}
	a.mu.Lock()
	db, err := a.connectDB(ctx)
	a.mu.Unlock()
	if err != nil {
		return err
	}
	return db.Migrate(ctx)
}

// Shutdown releases backend connections.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			firstErr = errors.WrapResource("close", "redis", "", err)
		}
		a.redis = nil
	}
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
	return firstErr
}

// setLogger swaps the logger and makes it the package default, so the
// engine's context loggers follow the CLI flags.
func (a *App) setLogger(logger zerolog.Logger) {
	a.logger = &logger
	logging.SetDefault(logger)
}
