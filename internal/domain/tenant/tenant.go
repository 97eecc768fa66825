// Package tenant defines the tenant directory domain model.
//
// Every tenant owns a fully isolated database named deterministically from
// its domain. The master directory is the only place that maps tenants to
// databases.
package tenant

import (
	"strings"
	"time"

	"github.com/fiberdesk/fiberdesk/internal/domain"
)

// UsernamePrefix is the fixed local part of every tenant admin username.
const UsernamePrefix = "admin@"

// Record is a tenant directory entry in the master database.
type Record struct {
	Username     string    `json:"username"`
	Domain       string    `json:"domain"`
	DatabaseName string    `json:"database_name"`
	AgentName    string    `json:"agent_name,omitempty"`
	Company      string    `json:"company,omitempty"`
	Region       string    `json:"region,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProvisionRequest holds the fields required to provision a new tenant.
type ProvisionRequest struct {
	Username      string `json:"username"`
	AdminPassword string `json:"admin_password"`
	AgentName     string `json:"agent_name,omitempty"`
	Company       string `json:"company,omitempty"`
	Region        string `json:"region,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

// ParseUsername splits a domain-qualified tenant username of the form
// admin@<domain> and returns the domain. It returns ErrInvalidUsername for
// anything else, including an empty domain.
func ParseUsername(username string) (string, error) {
	rest, ok := strings.CutPrefix(username, UsernamePrefix)
	if !ok || rest == "" || strings.Contains(rest, "@") {
		return "", domain.ErrInvalidUsername
	}
	return rest, nil
}

// IsDomainQualified reports whether identity looks like a tenant admin
// username rather than an opaque end-user name.
func IsDomainQualified(identity string) bool {
	_, err := ParseUsername(identity)
	return err == nil
}

// DeriveDatabaseName maps a tenant domain to its database name. The mapping
// is pure and idempotent: the domain is lower-cased, runs of non-alphanumeric
// characters collapse to a single underscore, leading and trailing
// underscores are stripped, and the result is prefixed "tenant_". The prefix
// guarantees the name never starts with a digit.
func DeriveDatabaseName(dom string) (string, error) {
	s := sanitize(dom)
	if s == "" {
		return "", domain.ErrInvalidDatabaseName
	}
	return "tenant_" + s, nil
}

// DeriveAlwataniDatabaseName maps an Alwatani account username to the name of
// its per-account cache database. Same sanitization rules as
// DeriveDatabaseName with an "alwatani_" prefix.
func DeriveAlwataniDatabaseName(username string) (string, error) {
	s := sanitize(username)
	if s == "" {
		return "", domain.ErrInvalidDatabaseName
	}
	return "alwatani_" + s, nil
}

func sanitize(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
