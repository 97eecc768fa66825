// Package database defines the port interfaces for the master directory,
// the per-tenant pool registry, and tenant-scoped stores.
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fiberdesk/fiberdesk/internal/domain/subscriber"
	"github.com/fiberdesk/fiberdesk/internal/domain/tenant"
)

// Directory is the master tenant directory: the single always-resolved
// database listing every tenant and its database name.
type Directory interface {
	// GetByUsername returns the record for a tenant admin username, or
	// domain.ErrTenantNotFound.
	GetByUsername(ctx context.Context, username string) (*tenant.Record, error)
	// GetByDomain returns the record for a tenant domain, or
	// domain.ErrTenantNotFound.
	GetByDomain(ctx context.Context, dom string) (*tenant.Record, error)
	// ListActive returns all active tenants in a deterministic order.
	ListActive(ctx context.Context) ([]tenant.Record, error)
	// Insert adds a new directory record.
	Insert(ctx context.Context, rec *tenant.Record) error
	// Deactivate marks a tenant inactive. Records are never deleted.
	Deactivate(ctx context.Context, username string) error
}

// Pools is the per-database connection pool registry. Pools are created
// lazily, cached for the process lifetime, and owned exclusively by the
// registry.
type Pools interface {
	// Tenant returns the pool for a tenant domain, creating it on first use.
	Tenant(ctx context.Context, dom string) (*pgxpool.Pool, error)
	// Alwatani returns the pool for an Alwatani account username, creating
	// it on first use. This is a separate cache axis from Tenant: Alwatani
	// databases are provisioned and keyed independently of tenant domains.
	Alwatani(ctx context.Context, username string) (*pgxpool.Pool, error)
	// CloseAll closes every cached pool and clears the registry.
	CloseAll()
}

// TenantStore runs queries inside a single tenant database. Callers pass the
// pool resolved for that tenant; the store never crosses databases itself.
type TenantStore interface {
	// UserExists reports whether the tenant's users table contains username.
	UserExists(ctx context.Context, pool *pgxpool.Pool, username string) (bool, error)
	// AlwataniLink returns the link record for an Alwatani account id, or
	// domain.ErrAlwataniAccountNotFound.
	AlwataniLink(ctx context.Context, pool *pgxpool.Pool, accountID string) (*subscriber.AlwataniLink, error)
	// SeedAdmin inserts the initial admin user with a bcrypt password hash.
	SeedAdmin(ctx context.Context, pool *pgxpool.Pool, username, passwordHash string) error
	// UpsertSubscribers writes a fetched page of subscribers into the
	// Alwatani cache database behind pool.
	UpsertSubscribers(ctx context.Context, pool *pgxpool.Pool, subs []subscriber.Subscriber) error
}

// SubscriberQueries serves the dashboard's read endpoints against a resolved
// pool.
type SubscriberQueries interface {
	// ListSubscribers returns up to limit subscribers, optionally filtered
	// by a case-insensitive name or phone match.
	ListSubscribers(ctx context.Context, pool *pgxpool.Pool, search string, limit int) ([]subscriber.Subscriber, error)
	// ExpiringSubscribers returns subscribers whose plan expires within the
	// given window, soonest first.
	ExpiringSubscribers(ctx context.Context, pool *pgxpool.Pool, within time.Duration) ([]subscriber.Subscriber, error)
}

// Provisioner creates isolated databases and their schemas.
type Provisioner interface {
	// CreateTenantDatabase creates the named database with the full tenant
	// schema. Idempotent: an existing database or table is success.
	CreateTenantDatabase(ctx context.Context, name string) error
	// CreateAlwataniDatabase creates the named per-account cache database
	// with the Alwatani schema. Idempotent.
	CreateAlwataniDatabase(ctx context.Context, name string) error
}
