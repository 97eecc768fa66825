// Package upstream defines the port interface for the Alwatani portal
// client.
package upstream

import (
	"context"

	"github.com/fiberdesk/fiberdesk/internal/domain/subscriber"
)

// Client fetches subscriber data from the Alwatani portal. Implementations
// perform the network calls; callers own progress reporting and
// cancellation.
type Client interface {
	// Login exchanges portal credentials for a session token.
	Login(ctx context.Context, username, password string) (string, error)
	// FetchSubscribers returns one page of subscribers. Pages are 1-based.
	FetchSubscribers(ctx context.Context, token string, page int) (*subscriber.Page, error)
}
