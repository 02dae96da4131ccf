// Package postgres implements the catalog store, vendor directory and run
// ledger on PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	_ "embed"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
)

//go:embed schema.sql
var schema string

// uniqueViolation is the SQLSTATE for a unique constraint violation.
const uniqueViolation = "23505"

// querier is the subset of pgxpool.Pool the stores use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.NewConfigError("postgres", "invalid database url", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.WrapResource("ping", "database", "", err)
	}
	return &DB{pool: pool}, nil
}

// Close closes the pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Migrate creates the tables the stores need. It is safe to run repeatedly.
func (db *DB) Migrate(ctx context.Context) error {
	ctx = logging.WithOperation(ctx, "migrate")
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return errors.WrapResource("migrate", "schema", "", err)
	}
	logging.Ctx(ctx).Info().Msg("Database schema is up to date")
	return nil
}

// Entries returns the catalog store.
func (db *DB) Entries() *CatalogStore {
	return &CatalogStore{q: db.pool}
}

// Vendors returns the vendor directory.
func (db *DB) Vendors() *VendorDirectory {
	return &VendorDirectory{q: db.pool}
}

// Runs returns the import run ledger.
func (db *DB) Runs() *RunLedger {
	return &RunLedger{q: db.pool}
}

// mapError translates driver errors into the catalogsync error types.
func mapError(err error, op, resource, id string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.NewNotFoundError(resource, id)
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errors.NewConflictError(resource, id, err)
	}
	return errors.WrapResource(op, resource, id, err)
}
