package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	fdotel "github.com/fiberdesk/fiberdesk/internal/adapter/otel"
	"github.com/fiberdesk/fiberdesk/internal/domain"
	"github.com/fiberdesk/fiberdesk/internal/domain/subscriber"
	"github.com/fiberdesk/fiberdesk/internal/domain/tenant"
	"github.com/fiberdesk/fiberdesk/internal/port/cache"
	"github.com/fiberdesk/fiberdesk/internal/port/database"
)

// Resolver maps request identities to tenant connection pools. It is the
// only component allowed to cross tenant boundaries, and it does so through
// one explicit algorithm: direct directory lookup for domain-qualified
// identities, bounded directory-wide scan for everything else.
type Resolver struct {
	dir     database.Directory
	pools   database.Pools
	store   database.TenantStore
	cache   cache.Cache // optional L1 over directory lookups; nil disables
	ttl     time.Duration
	metrics *fdotel.Metrics
}

// NewResolver creates a Resolver. c may be nil to disable directory caching;
// metrics may be nil.
func NewResolver(dir database.Directory, pools database.Pools, store database.TenantStore,
	c cache.Cache, ttl time.Duration, metrics *fdotel.Metrics) *Resolver {
	return &Resolver{dir: dir, pools: pools, store: store, cache: c, ttl: ttl, metrics: metrics}
}

// ResolvePool returns the connection pool for the tenant owning identity.
//
// A domain-qualified identity (admin@<domain>) resolves through the master
// directory only: an unknown domain fails with domain.ErrTenantNotFound
// without any scan. Any other identity triggers a directory-wide scan that
// probes every active tenant's users table in listing order and returns the
// first match, or domain.ErrUserNotFound after all tenants were consulted.
//
// The scan is O(number of tenants) per unresolved lookup. Tenant count is
// administrative scale, but callers on hot paths should prefer
// domain-qualified identities.
func (r *Resolver) ResolvePool(ctx context.Context, identity string) (*pgxpool.Pool, error) {
	if dom, err := tenant.ParseUsername(identity); err == nil {
		if _, err := r.lookupDomain(ctx, dom); err != nil {
			return nil, err
		}
		return r.pools.Tenant(ctx, dom)
	}

	r.metrics.AddFallbackScan(ctx)

	records, err := r.dir.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants for scan: %w", err)
	}

	for i := range records {
		pool, err := r.pools.Tenant(ctx, records[i].Domain)
		if err != nil {
			return nil, err
		}
		found, err := r.store.UserExists(ctx, pool, identity)
		if err != nil {
			return nil, err
		}
		if found {
			return pool, nil
		}
	}

	return nil, fmt.Errorf("identity %s: %w", identity, domain.ErrUserNotFound)
}

// ResolveAlwataniPool resolves the Alwatani cache pool for an opaque account
// id. The owning tenant's link table is consulted first; a miss widens to a
// scan of every active tenant's link table before failing with
// domain.ErrAlwataniAccountNotFound. The returned pool lives on the Alwatani
// cache axis, keyed by the link's portal username, not by tenant domain.
func (r *Resolver) ResolveAlwataniPool(ctx context.Context, identity, accountID string) (*pgxpool.Pool, *subscriber.AlwataniLink, error) {
	pool, err := r.ResolvePool(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	link, err := r.store.AlwataniLink(ctx, pool, accountID)
	if errors.Is(err, domain.ErrAlwataniAccountNotFound) {
		link, err = r.scanForLink(ctx, accountID)
	}
	if err != nil {
		return nil, nil, err
	}

	alwataniPool, err := r.pools.Alwatani(ctx, link.AlwataniUsername)
	if err != nil {
		return nil, nil, err
	}
	return alwataniPool, link, nil
}

// scanForLink checks every active tenant's link table for accountID,
// stopping at the first match.
func (r *Resolver) scanForLink(ctx context.Context, accountID string) (*subscriber.AlwataniLink, error) {
	r.metrics.AddFallbackScan(ctx)

	records, err := r.dir.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants for link scan: %w", err)
	}

	for i := range records {
		pool, err := r.pools.Tenant(ctx, records[i].Domain)
		if err != nil {
			return nil, err
		}
		link, err := r.store.AlwataniLink(ctx, pool, accountID)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, domain.ErrAlwataniAccountNotFound) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("account %s: %w", accountID, domain.ErrAlwataniAccountNotFound)
}

// lookupDomain returns the directory record for a domain, consulting the L1
// cache first. Only positive lookups are cached: a miss today may be a
// freshly provisioned tenant tomorrow.
func (r *Resolver) lookupDomain(ctx context.Context, dom string) (*tenant.Record, error) {
	key := "dir:domain:" + dom

	if r.cache != nil {
		if data, ok, _ := r.cache.Get(ctx, key); ok {
			var rec tenant.Record
			if err := json.Unmarshal(data, &rec); err == nil {
				return &rec, nil
			}
		}
	}

	rec, err := r.dir.GetByDomain(ctx, dom)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if data, err := json.Marshal(rec); err == nil {
			_ = r.cache.Set(ctx, key, data, r.ttl)
		}
	}
	return rec, nil
}

// InvalidateDomain drops a domain's cached directory record, used after
// deactivation.
func (r *Resolver) InvalidateDomain(ctx context.Context, dom string) {
	if r.cache != nil {
		_ = r.cache.Delete(ctx, "dir:domain:"+dom)
	}
}
