package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fiberdesk/fiberdesk/internal/domain"
	"github.com/fiberdesk/fiberdesk/internal/domain/tenant"
)

const directoryColumns = `username, domain, database_name, agent_name, company, region, phone, is_active, created_at, updated_at`

// Directory implements the master tenant directory over the master database
// pool.
type Directory struct {
	pool *pgxpool.Pool
}

// NewDirectory creates a Directory backed by the master database pool.
func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

// GetByUsername returns the directory record for a tenant admin username.
func (d *Directory) GetByUsername(ctx context.Context, username string) (*tenant.Record, error) {
	return d.getWhere(ctx, "username = $1", username)
}

// GetByDomain returns the directory record for a tenant domain.
func (d *Directory) GetByDomain(ctx context.Context, dom string) (*tenant.Record, error) {
	return d.getWhere(ctx, "domain = $1", dom)
}

func (d *Directory) getWhere(ctx context.Context, where, arg string) (*tenant.Record, error) {
	var rec tenant.Record
	err := d.pool.QueryRow(ctx,
		`SELECT `+directoryColumns+` FROM tenant_directory WHERE `+where, arg,
	).Scan(&rec.Username, &rec.Domain, &rec.DatabaseName, &rec.AgentName, &rec.Company,
		&rec.Region, &rec.Phone, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tenant %s: %w", arg, domain.ErrTenantNotFound)
		}
		return nil, fmt.Errorf("get tenant %s: %w", arg, err)
	}
	return &rec, nil
}

// ListActive returns all active tenants. The order is deterministic per
// directory snapshot: creation time, then username.
func (d *Directory) ListActive(ctx context.Context) ([]tenant.Record, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT `+directoryColumns+` FROM tenant_directory
		 WHERE is_active ORDER BY created_at, username`)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}
	defer rows.Close()

	var records []tenant.Record
	for rows.Next() {
		var rec tenant.Record
		if err := rows.Scan(&rec.Username, &rec.Domain, &rec.DatabaseName, &rec.AgentName,
			&rec.Company, &rec.Region, &rec.Phone, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Insert adds a new directory record. A duplicate username or database name
// surfaces as domain.ErrTenantAlreadyExists.
func (d *Directory) Insert(ctx context.Context, rec *tenant.Record) error {
	err := d.pool.QueryRow(ctx,
		`INSERT INTO tenant_directory (username, domain, database_name, agent_name, company, region, phone)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING is_active, created_at, updated_at`,
		rec.Username, rec.Domain, rec.DatabaseName, rec.AgentName, rec.Company, rec.Region, rec.Phone,
	).Scan(&rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tenant %s: %w", rec.Username, domain.ErrTenantAlreadyExists)
		}
		return fmt.Errorf("insert tenant %s: %w", rec.Username, err)
	}
	return nil
}

// Deactivate marks a tenant inactive. Directory records are never deleted by
// this layer.
func (d *Directory) Deactivate(ctx context.Context, username string) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE tenant_directory SET is_active = false, updated_at = now()
		 WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("deactivate tenant %s: %w", username, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deactivate tenant %s: %w", username, domain.ErrTenantNotFound)
	}
	return nil
}
