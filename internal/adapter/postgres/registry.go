package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fiberdesk/fiberdesk/internal/config"
	"github.com/fiberdesk/fiberdesk/internal/domain/tenant"
)

// OpenFunc opens a connection pool in the named database.
type OpenFunc func(ctx context.Context, cfg config.Postgres, database string) (*pgxpool.Pool, error)

// Registry caches one live connection pool per tenant domain and one per
// Alwatani account username. The two axes are independent: Alwatani
// databases are provisioned and keyed separately from tenant databases.
//
// Entries live for the process lifetime; there is no eviction. The tenant
// set is small and bounded by explicit provisioning, so the registry never
// grows past administrative scale.
type Registry struct {
	cfg  config.Postgres
	open OpenFunc

	mu       sync.Mutex
	tenants  map[string]*pgxpool.Pool
	alwatani map[string]*pgxpool.Pool
}

// NewRegistry creates a Registry that opens pools with NewPool.
func NewRegistry(cfg config.Postgres) *Registry {
	return NewRegistryWithOpener(cfg, NewPool)
}

// NewRegistryWithOpener creates a Registry with a custom pool opener.
func NewRegistryWithOpener(cfg config.Postgres, open OpenFunc) *Registry {
	return &Registry{
		cfg:      cfg,
		open:     open,
		tenants:  make(map[string]*pgxpool.Pool),
		alwatani: make(map[string]*pgxpool.Pool),
	}
}

// Tenant returns the pool for a tenant domain, opening it on first use.
func (r *Registry) Tenant(ctx context.Context, dom string) (*pgxpool.Pool, error) {
	database, err := tenant.DeriveDatabaseName(dom)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, r.tenants, dom, database)
}

// Alwatani returns the pool for an Alwatani account username, opening it on
// first use.
func (r *Registry) Alwatani(ctx context.Context, username string) (*pgxpool.Pool, error) {
	database, err := tenant.DeriveAlwataniDatabaseName(username)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, r.alwatani, username, database)
}

// get returns the cached pool for key or opens one in database. The lock
// covers the whole check-open-insert sequence, so concurrent first access
// for the same key constructs exactly one pool. A failed open is never
// cached: the next caller gets a fresh creation attempt.
func (r *Registry) get(ctx context.Context, pools map[string]*pgxpool.Pool, key, database string) (*pgxpool.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pool, ok := pools[key]; ok {
		return pool, nil
	}

	pool, err := r.open(ctx, r.cfg, database)
	if err != nil {
		return nil, fmt.Errorf("open pool for %s: %w", database, err)
	}

	pools[key] = pool
	slog.Debug("pool opened", "database", database)
	return pool, nil
}

// CloseAll closes every cached pool and clears the registry. Individual
// closes never abort the sweep. Called once at process shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, pool := range r.tenants {
		pool.Close()
		slog.Debug("tenant pool closed", "domain", key)
	}
	for key, pool := range r.alwatani {
		pool.Close()
		slog.Debug("alwatani pool closed", "account", key)
	}
	r.tenants = make(map[string]*pgxpool.Pool)
	r.alwatani = make(map[string]*pgxpool.Pool)
}
