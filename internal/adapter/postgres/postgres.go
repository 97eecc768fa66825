// Package postgres provides PostgreSQL access for FiberDesk: the master
// directory, the per-tenant pool registry, schema provisioning, and
// tenant-scoped stores.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql (needed by goose)
	"github.com/pressly/goose/v3"

	"github.com/fiberdesk/fiberdesk/internal/config"
	"github.com/fiberdesk/fiberdesk/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// identRegex matches the database names this layer is willing to create.
// Derived names always satisfy it; anything else is rejected before touching
// SQL.
var identRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// NewPool opens a pgxpool in the named database on the configured server.
// The pool is pinged before being returned, so connection failures surface
// to the caller instead of on first query.
func NewPool(ctx context.Context, cfg config.Postgres, database string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN(database))
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheck

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s: %w", database, err)
	}

	return pool, nil
}

// EnsureMasterDatabase idempotently creates the master database and applies
// the tenant-directory migrations. Safe to call repeatedly and under
// concurrent process startup: an "already exists" race is success.
func EnsureMasterDatabase(ctx context.Context, cfg config.Postgres) error {
	if err := CreateDatabase(ctx, cfg, cfg.MasterDB); err != nil {
		return fmt.Errorf("master database: %w", err)
	}
	if err := runMigrations(ctx, cfg.DSN(cfg.MasterDB)); err != nil {
		return fmt.Errorf("master migrations: %w", err)
	}
	return nil
}

// CreateDatabase creates the named database via the maintenance connection.
// A database that already exists, or loses the create race to a concurrent
// process, is treated as success.
func CreateDatabase(ctx context.Context, cfg config.Postgres, name string) error {
	if !identRegex.MatchString(name) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidDatabaseName, name)
	}

	conn, err := pgx.Connect(ctx, cfg.DSN("postgres"))
	if err != nil {
		return fmt.Errorf("connect maintenance db: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	_, err = conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize())
	if err != nil && !isDuplicateDatabase(err) {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	return nil
}

// isDuplicateDatabase reports whether err is "database already exists"
// (42P04) or the unique-violation raised when two creates race (23505).
func isDuplicateDatabase(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "42P04" || pgErr.Code == "23505"
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// runMigrations applies all pending goose migrations from the embedded SQL
// files against the given DSN.
func runMigrations(ctx context.Context, dsn string) error {
	goose.SetBaseFS(migrations)

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
