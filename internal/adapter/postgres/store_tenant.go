package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fiberdesk/fiberdesk/internal/domain"
	"github.com/fiberdesk/fiberdesk/internal/domain/subscriber"
)

// Store runs queries inside a single tenant or Alwatani database. Callers
// pass the pool resolved for that database; the store itself never crosses
// database boundaries.
type Store struct{}

// NewStore creates a tenant-scoped query store.
func NewStore() *Store {
	return &Store{}
}

// UserExists reports whether the database's users table contains username.
func (s *Store) UserExists(ctx context.Context, pool *pgxpool.Pool, username string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe user %s: %w", username, err)
	}
	return exists, nil
}

// AlwataniLink returns the link record for an Alwatani account id.
func (s *Store) AlwataniLink(ctx context.Context, pool *pgxpool.Pool, accountID string) (*subscriber.AlwataniLink, error) {
	var link subscriber.AlwataniLink
	err := pool.QueryRow(ctx,
		`SELECT account_id, alwatani_username, local_user_id, created_at
		 FROM alwatani_accounts WHERE account_id = $1`, accountID,
	).Scan(&link.AccountID, &link.AlwataniUsername, &link.LocalUserID, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", accountID, domain.ErrAlwataniAccountNotFound)
		}
		return nil, fmt.Errorf("get alwatani link %s: %w", accountID, err)
	}
	return &link, nil
}

// SeedAdmin inserts the initial admin user. Re-seeding an existing username
// is a no-op so provisioning stays idempotent past the directory insert.
func (s *Store) SeedAdmin(ctx context.Context, pool *pgxpool.Pool, username, passwordHash string) error {
	_, err := pool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, role)
		 VALUES ($1, $2, $3, 'admin')
		 ON CONFLICT (username) DO NOTHING`,
		uuid.NewString(), username, passwordHash)
	if err != nil {
		return fmt.Errorf("seed admin %s: %w", username, err)
	}
	return nil
}

// ListSubscribers returns up to limit subscribers, optionally filtered by a
// case-insensitive name or phone match.
func (s *Store) ListSubscribers(ctx context.Context, pool *pgxpool.Pool, search string, limit int) ([]subscriber.Subscriber, error) {
	rows, err := pool.Query(ctx,
		`SELECT id, name, phone, plan, status, COALESCE(expires_at, 'epoch'::timestamptz), created_at, updated_at
		 FROM subscribers
		 WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR phone LIKE '%' || $1 || '%'
		 ORDER BY name LIMIT $2`, search, limit)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()
	return scanSubscribers(rows)
}

// ExpiringSubscribers returns subscribers whose plan expires within the
// given window, soonest first.
func (s *Store) ExpiringSubscribers(ctx context.Context, pool *pgxpool.Pool, within time.Duration) ([]subscriber.Subscriber, error) {
	rows, err := pool.Query(ctx,
		`SELECT id, name, phone, plan, status, expires_at, created_at, updated_at
		 FROM subscribers
		 WHERE expires_at IS NOT NULL AND expires_at BETWEEN now() AND now() + $1
		 ORDER BY expires_at`, within)
	if err != nil {
		return nil, fmt.Errorf("list expiring subscribers: %w", err)
	}
	defer rows.Close()
	return scanSubscribers(rows)
}

func scanSubscribers(rows pgx.Rows) ([]subscriber.Subscriber, error) {
	var subs []subscriber.Subscriber
	for rows.Next() {
		var sub subscriber.Subscriber
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Phone, &sub.Plan, &sub.Status,
			&sub.ExpiresAt, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpsertSubscribers writes a fetched page of subscribers into the Alwatani
// cache database, overwriting any previous snapshot of the same ids.
func (s *Store) UpsertSubscribers(ctx context.Context, pool *pgxpool.Pool, subs []subscriber.Subscriber) error {
	batch := &pgx.Batch{}
	for i := range subs {
		sub := &subs[i]
		if sub.ID == "" {
			sub.ID = uuid.NewString()
		}
		batch.Queue(
			`INSERT INTO subscribers (id, name, phone, plan, status, expires_at)
			 VALUES ($1, $2, $3, $4, $5, NULLIF($6, 'epoch'::timestamptz))
			 ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, phone = EXCLUDED.phone, plan = EXCLUDED.plan,
				status = EXCLUDED.status, expires_at = EXCLUDED.expires_at, updated_at = now()`,
			sub.ID, sub.Name, sub.Phone, sub.Plan, sub.Status, sub.ExpiresAt)
	}

	results := pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range subs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert subscribers: %w", err)
		}
	}
	return nil
}
