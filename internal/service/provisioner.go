package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	fdotel "github.com/fiberdesk/fiberdesk/internal/adapter/otel"
	"github.com/fiberdesk/fiberdesk/internal/domain"
	"github.com/fiberdesk/fiberdesk/internal/domain/tenant"
	"github.com/fiberdesk/fiberdesk/internal/port/database"
)

// Provisioner creates new tenants: an isolated database with the full
// schema, a master directory record, and a seed admin user.
//
// Provisioning is deliberately not transactional across databases. The
// directory insert can fail after the tenant database was created, leaving
// an orphaned database with no directory entry; that condition is logged at
// error level and surfaced as domain.ErrProvisioningPartial for the
// operator. There is no automatic rollback.
type Provisioner struct {
	dir     database.Directory
	schema  database.Provisioner
	pools   database.Pools
	store   database.TenantStore
	metrics *fdotel.Metrics
}

// NewProvisioner creates a Provisioner. metrics may be nil.
func NewProvisioner(dir database.Directory, schema database.Provisioner, pools database.Pools,
	store database.TenantStore, metrics *fdotel.Metrics) *Provisioner {
	return &Provisioner{dir: dir, schema: schema, pools: pools, store: store, metrics: metrics}
}

// Provision creates a new tenant from req and returns the name of its
// database.
func (p *Provisioner) Provision(ctx context.Context, req tenant.ProvisionRequest) (string, error) {
	dom, err := tenant.ParseUsername(req.Username)
	if err != nil {
		return "", err
	}
	databaseName, err := tenant.DeriveDatabaseName(dom)
	if err != nil {
		return "", err
	}
	if req.AdminPassword == "" {
		return "", fmt.Errorf("%w: admin password is required", domain.ErrInvalidUsername)
	}

	// Hash before any side effect so a bad credential cannot orphan a
	// database.
	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash admin password: %w", err)
	}

	_, err = p.dir.GetByUsername(ctx, req.Username)
	if err == nil {
		return "", fmt.Errorf("tenant %s: %w", req.Username, domain.ErrTenantAlreadyExists)
	}
	if !errors.Is(err, domain.ErrTenantNotFound) {
		return "", err
	}

	if err := p.schema.CreateTenantDatabase(ctx, databaseName); err != nil {
		return "", fmt.Errorf("create tenant database: %w", err)
	}

	rec := &tenant.Record{
		Username:     req.Username,
		Domain:       dom,
		DatabaseName: databaseName,
		AgentName:    req.AgentName,
		Company:      req.Company,
		Region:       req.Region,
		Phone:        req.Phone,
	}
	if err := p.dir.Insert(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrTenantAlreadyExists) {
			return "", err
		}
		slog.Error("tenant database orphaned: directory insert failed after schema creation",
			"database", databaseName, "username", req.Username, "error", err)
		return "", fmt.Errorf("%w: database %s has no directory entry: %v",
			domain.ErrProvisioningPartial, databaseName, err)
	}

	pool, err := p.pools.Tenant(ctx, dom)
	if err != nil {
		slog.Error("tenant provisioned without seed admin: pool open failed",
			"database", databaseName, "username", req.Username, "error", err)
		return "", fmt.Errorf("%w: %s is registered but has no admin user: %v",
			domain.ErrProvisioningPartial, databaseName, err)
	}
	if err := p.store.SeedAdmin(ctx, pool, req.Username, string(hash)); err != nil {
		slog.Error("tenant provisioned without seed admin",
			"database", databaseName, "username", req.Username, "error", err)
		return "", fmt.Errorf("%w: %s is registered but has no admin user: %v",
			domain.ErrProvisioningPartial, databaseName, err)
	}

	p.metrics.AddTenantProvisioned(ctx)
	slog.Info("tenant provisioned", "username", req.Username, "database", databaseName)
	return databaseName, nil
}

// ProvisionAlwatani creates or refreshes the per-account Alwatani cache
// database for a portal username and returns its name. Unlike tenant
// provisioning there is no already-exists check: re-provisioning an account
// reapplies the idempotent schema and continues.
func (p *Provisioner) ProvisionAlwatani(ctx context.Context, username string) (string, error) {
	databaseName, err := tenant.DeriveAlwataniDatabaseName(username)
	if err != nil {
		return "", err
	}
	if err := p.schema.CreateAlwataniDatabase(ctx, databaseName); err != nil {
		return "", fmt.Errorf("create alwatani database: %w", err)
	}
	slog.Info("alwatani database provisioned", "username", username, "database", databaseName)
	return databaseName, nil
}
