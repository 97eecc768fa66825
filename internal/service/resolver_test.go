package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fiberdesk/fiberdesk/internal/adapter/ristretto"
	"github.com/fiberdesk/fiberdesk/internal/domain"
	"github.com/fiberdesk/fiberdesk/internal/domain/subscriber"
	"github.com/fiberdesk/fiberdesk/internal/port/cache"
	"github.com/fiberdesk/fiberdesk/internal/service"
)

func newResolverEnv(t *testing.T, c cache.Cache) (*service.Resolver, *fakeDirectory, *fakePools, *fakeStore) {
	t.Helper()
	dir := &fakeDirectory{}
	pools := newFakePools()
	t.Cleanup(pools.CloseAll)
	store := newFakeStore(pools)
	r := service.NewResolver(dir, pools, store, c, time.Minute, nil)
	return r, dir, pools, store
}

func TestResolvePool_DomainQualified(t *testing.T) {
	r, dir, pools, store := newResolverEnv(t, nil)
	dir.add("admin@acme")
	ctx := context.Background()

	pool, err := r.ResolvePool(ctx, "admin@acme")
	if err != nil {
		t.Fatal(err)
	}

	want, _ := pools.Tenant(ctx, "acme")
	if pool != want {
		t.Fatal("resolved pool is not the tenant's cached pool")
	}
	if len(store.probed) != 0 {
		t.Fatalf("domain-qualified resolution must not probe tenants, probed %v", store.probed)
	}
}

func TestResolvePool_UnknownDomainNoScan(t *testing.T) {
	r, dir, _, _ := newResolverEnv(t, nil)
	dir.add("admin@acme")

	_, err := r.ResolvePool(context.Background(), "admin@unknown")
	if !errors.Is(err, domain.ErrTenantNotFound) {
		t.Fatalf("error = %v, want ErrTenantNotFound", err)
	}
	if dir.listCalls != 0 {
		t.Fatal("unknown domain must fail without a directory-wide scan")
	}
}

func TestResolvePool_FallbackScanFindsUser(t *testing.T) {
	r, dir, pools, store := newResolverEnv(t, nil)
	dir.add("admin@alpha")
	dir.add("admin@beta")
	store.users["beta"] = []string{"salem99"}
	ctx := context.Background()

	pool, err := r.ResolvePool(ctx, "salem99")
	if err != nil {
		t.Fatal(err)
	}

	want, _ := pools.Tenant(ctx, "beta")
	if pool != want {
		t.Fatal("expected the pool of the tenant containing the user")
	}
	// Listing order, early exit on match.
	if len(store.probed) != 2 || store.probed[0] != "alpha" || store.probed[1] != "beta" {
		t.Fatalf("probe order = %v", store.probed)
	}
}

func TestResolvePool_UserNotFoundAfterFullScan(t *testing.T) {
	r, dir, _, store := newResolverEnv(t, nil)
	dir.add("admin@alpha")
	dir.add("admin@beta")
	dir.add("admin@gamma")

	_, err := r.ResolvePool(context.Background(), "nobody")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("error = %v, want ErrUserNotFound", err)
	}
	if len(store.probed) != 3 {
		t.Fatalf("expected all 3 tenants consulted, probed %v", store.probed)
	}
}

func TestResolvePool_SkipsInactiveTenants(t *testing.T) {
	r, dir, _, store := newResolverEnv(t, nil)
	dir.add("admin@alpha")
	rec := dir.add("admin@beta")
	rec.IsActive = false
	store.users["beta"] = []string{"salem99"}

	_, err := r.ResolvePool(context.Background(), "salem99")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("error = %v, want ErrUserNotFound for user in inactive tenant", err)
	}
}

func TestResolvePool_DirectoryCacheHit(t *testing.T) {
	l1, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer l1.Close()

	r, dir, _, _ := newResolverEnv(t, l1)
	dir.add("admin@acme")
	ctx := context.Background()

	if _, err := r.ResolvePool(ctx, "admin@acme"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ResolvePool(ctx, "admin@acme"); err != nil {
		t.Fatal(err)
	}

	if dir.getDomainCalls != 1 {
		t.Fatalf("expected 1 directory lookup with warm cache, got %d", dir.getDomainCalls)
	}
}

func TestResolveAlwataniPool_DirectLink(t *testing.T) {
	r, dir, pools, store := newResolverEnv(t, nil)
	dir.add("admin@acme")
	store.links["acme"] = map[string]subscriber.AlwataniLink{
		"ACC-7": {AccountID: "ACC-7", AlwataniUsername: "ws-10442", LocalUserID: "u1"},
	}
	ctx := context.Background()

	pool, link, err := r.ResolveAlwataniPool(ctx, "admin@acme", "ACC-7")
	if err != nil {
		t.Fatal(err)
	}
	if link.AlwataniUsername != "ws-10442" {
		t.Fatalf("link username = %q", link.AlwataniUsername)
	}

	// The Alwatani pool lives on its own cache axis.
	want, _ := pools.Alwatani(ctx, "ws-10442")
	if pool != want {
		t.Fatal("expected the alwatani-axis pool for the link's username")
	}
	tenantPool, _ := pools.Tenant(ctx, "acme")
	if pool == tenantPool {
		t.Fatal("alwatani pool must not be the tenant pool")
	}
}

func TestResolveAlwataniPool_ScanOtherTenants(t *testing.T) {
	r, dir, _, store := newResolverEnv(t, nil)
	dir.add("admin@alpha")
	dir.add("admin@beta")
	store.links["beta"] = map[string]subscriber.AlwataniLink{
		"ACC-9": {AccountID: "ACC-9", AlwataniUsername: "ws-2", LocalUserID: "u2"},
	}

	// The identity resolves to alpha, whose link table misses; the scan
	// finds the link in beta.
	_, link, err := r.ResolveAlwataniPool(context.Background(), "admin@alpha", "ACC-9")
	if err != nil {
		t.Fatal(err)
	}
	if link.AlwataniUsername != "ws-2" {
		t.Fatalf("link username = %q", link.AlwataniUsername)
	}
}

func TestResolveAlwataniPool_NotFound(t *testing.T) {
	r, dir, _, _ := newResolverEnv(t, nil)
	dir.add("admin@alpha")
	dir.add("admin@beta")

	_, _, err := r.ResolveAlwataniPool(context.Background(), "admin@alpha", "ACC-404")
	if !errors.Is(err, domain.ErrAlwataniAccountNotFound) {
		t.Fatalf("error = %v, want ErrAlwataniAccountNotFound", err)
	}
	if dir.listCalls != 1 {
		t.Fatalf("expected exactly one link scan, got %d list calls", dir.listCalls)
	}
}
