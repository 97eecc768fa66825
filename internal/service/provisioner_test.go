package service_test

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/fiberdesk/fiberdesk/internal/domain"
	"github.com/fiberdesk/fiberdesk/internal/domain/tenant"
	"github.com/fiberdesk/fiberdesk/internal/service"
)

func newProvisionerEnv(t *testing.T) (*service.Provisioner, *fakeDirectory, *fakeSchema, *fakeStore) {
	t.Helper()
	dir := &fakeDirectory{}
	schema := &fakeSchema{}
	pools := newFakePools()
	t.Cleanup(pools.CloseAll)
	store := newFakeStore(pools)
	p := service.NewProvisioner(dir, schema, pools, store, nil)
	return p, dir, schema, store
}

func TestProvision_Success(t *testing.T) {
	p, dir, schema, store := newProvisionerEnv(t)
	ctx := context.Background()

	dbName, err := p.Provision(ctx, tenant.ProvisionRequest{
		Username:      "admin@acme",
		AdminPassword: "s3cret!",
		Company:       "Acme Fiber",
	})
	if err != nil {
		t.Fatal(err)
	}
	if dbName != "tenant_acme" {
		t.Fatalf("database name = %q, want tenant_acme", dbName)
	}

	rec, err := dir.GetByUsername(ctx, "admin@acme")
	if err != nil {
		t.Fatalf("directory record missing after provision: %v", err)
	}
	if rec.DatabaseName != "tenant_acme" || rec.Domain != "acme" {
		t.Fatalf("directory record = %+v", rec)
	}

	if len(schema.created) != 1 || schema.created[0] != "tenant_acme" {
		t.Fatalf("created databases = %v", schema.created)
	}

	hash, ok := store.seeded["admin@acme"]
	if !ok {
		t.Fatal("seed admin missing")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret!")); err != nil {
		t.Fatalf("seed admin hash does not verify: %v", err)
	}
}

func TestProvision_Duplicate(t *testing.T) {
	p, dir, _, _ := newProvisionerEnv(t)
	dir.add("admin@acme")

	_, err := p.Provision(context.Background(), tenant.ProvisionRequest{
		Username: "admin@acme", AdminPassword: "x",
	})
	if !errors.Is(err, domain.ErrTenantAlreadyExists) {
		t.Fatalf("error = %v, want ErrTenantAlreadyExists", err)
	}
}

func TestProvision_InvalidUsername(t *testing.T) {
	p, _, schema, _ := newProvisionerEnv(t)

	for _, username := range []string{"acme", "user@acme", "admin@"} {
		_, err := p.Provision(context.Background(), tenant.ProvisionRequest{
			Username: username, AdminPassword: "x",
		})
		if !errors.Is(err, domain.ErrInvalidUsername) {
			t.Errorf("Provision(%q) error = %v, want ErrInvalidUsername", username, err)
		}
	}
	if len(schema.created) != 0 {
		t.Fatal("invalid usernames must not create databases")
	}
}

func TestProvision_DirectoryInsertFailure(t *testing.T) {
	p, dir, schema, _ := newProvisionerEnv(t)
	dir.insertErr = errors.New("master directory unreachable")

	_, err := p.Provision(context.Background(), tenant.ProvisionRequest{
		Username: "admin@acme", AdminPassword: "x",
	})
	if !errors.Is(err, domain.ErrProvisioningPartial) {
		t.Fatalf("error = %v, want ErrProvisioningPartial", err)
	}
	// The orphaned database exists; nothing rolled it back.
	if len(schema.created) != 1 || schema.created[0] != "tenant_acme" {
		t.Fatalf("created databases = %v", schema.created)
	}
}

func TestProvision_DomainDerivation(t *testing.T) {
	p, _, _, _ := newProvisionerEnv(t)

	dbName, err := p.Provision(context.Background(), tenant.ProvisionRequest{
		Username: "admin@Acme-2", AdminPassword: "x",
	})
	if err != nil {
		t.Fatal(err)
	}
	if dbName != "tenant_acme_2" {
		t.Fatalf("database name = %q, want tenant_acme_2", dbName)
	}
}

func TestProvisionAlwatani_NoExistsCheck(t *testing.T) {
	p, _, schema, _ := newProvisionerEnv(t)
	ctx := context.Background()

	first, err := p.ProvisionAlwatani(ctx, "WS-10442")
	if err != nil {
		t.Fatal(err)
	}
	if first != "alwatani_ws_10442" {
		t.Fatalf("database name = %q", first)
	}

	// Re-provisioning continues instead of failing.
	second, err := p.ProvisionAlwatani(ctx, "WS-10442")
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Fatalf("re-provision changed name: %q vs %q", second, first)
	}
	if len(schema.created) != 2 {
		t.Fatalf("expected schema reapplied on re-provision, created %v", schema.created)
	}
}
