package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fiberdesk/fiberdesk/internal/config"
)

// tenantDDL is the fixed table set of every tenant database. Every statement
// is idempotent so re-provisioning an existing tenant database is harmless.
var tenantDDL = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            text PRIMARY KEY,
		username      text NOT NULL UNIQUE,
		password_hash text NOT NULL,
		role          text NOT NULL DEFAULT 'admin',
		created_at    timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS subscribers (
		id         text PRIMARY KEY,
		name       text NOT NULL,
		phone      text NOT NULL DEFAULT '',
		plan       text NOT NULL DEFAULT '',
		status     text NOT NULL DEFAULT 'active',
		expires_at timestamptz,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subscribers_expires_at ON subscribers (expires_at)`,
	`CREATE TABLE IF NOT EXISTS alwatani_accounts (
		account_id        text PRIMARY KEY,
		alwatani_username text NOT NULL,
		local_user_id     text NOT NULL REFERENCES users (id),
		created_at        timestamptz NOT NULL DEFAULT now()
	)`,
}

// alwataniDDL is the table set of a per-account Alwatani cache database.
var alwataniDDL = []string{
	`CREATE TABLE IF NOT EXISTS subscribers (
		id         text PRIMARY KEY,
		name       text NOT NULL,
		phone      text NOT NULL DEFAULT '',
		plan       text NOT NULL DEFAULT '',
		status     text NOT NULL DEFAULT 'active',
		expires_at timestamptz,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sync_runs (
		id          text PRIMARY KEY,
		started_at  timestamptz NOT NULL,
		finished_at timestamptz,
		fetched     integer NOT NULL DEFAULT 0,
		result      text NOT NULL DEFAULT ''
	)`,
}

// SchemaManager creates isolated tenant and Alwatani databases with their
// full schemas.
type SchemaManager struct {
	cfg config.Postgres
}

// NewSchemaManager creates a SchemaManager for the configured server.
func NewSchemaManager(cfg config.Postgres) *SchemaManager {
	return &SchemaManager{cfg: cfg}
}

// CreateTenantDatabase creates the named database and the tenant schema
// inside it. Idempotent end to end.
func (m *SchemaManager) CreateTenantDatabase(ctx context.Context, name string) error {
	return m.create(ctx, name, tenantDDL)
}

// CreateAlwataniDatabase creates the named per-account cache database and
// the Alwatani schema inside it. Idempotent end to end.
func (m *SchemaManager) CreateAlwataniDatabase(ctx context.Context, name string) error {
	return m.create(ctx, name, alwataniDDL)
}

func (m *SchemaManager) create(ctx context.Context, name string, ddl []string) error {
	if err := CreateDatabase(ctx, m.cfg, name); err != nil {
		return err
	}

	conn, err := pgx.Connect(ctx, m.cfg.DSN(name))
	if err != nil {
		return fmt.Errorf("connect %s: %w", name, err)
	}
	defer func() { _ = conn.Close(ctx) }()

	for _, stmt := range ddl {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema to %s: %w", name, err)
		}
	}
	return nil
}
