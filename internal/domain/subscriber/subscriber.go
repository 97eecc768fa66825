// Package subscriber defines the FTTH subscriber domain model held in each
// tenant database.
package subscriber

import "time"

// Subscriber is one FTTH customer line managed by a tenant.
type Subscriber struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Plan      string    `json:"plan"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AlwataniLink maps an Alwatani portal account to the local user that owns
// it. Each tenant database carries its own link table; resolving an opaque
// account id to a tenant means finding the database whose link table contains
// it.
type AlwataniLink struct {
	AccountID        string    `json:"account_id"`
	AlwataniUsername string    `json:"alwatani_username"`
	LocalUserID      string    `json:"local_user_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// Page is one page of subscribers fetched from the Alwatani portal.
type Page struct {
	Subscribers []Subscriber `json:"subscribers"`
	Page        int          `json:"page"`
	TotalPages  int          `json:"total_pages"`
	TotalCount  int          `json:"total_count"`
}
