// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrTenantNotFound indicates no directory record exists for the requested
// tenant domain. Tenants must be explicitly provisioned first.
var ErrTenantNotFound = errors.New("tenant not found")

// ErrUserNotFound indicates no active tenant database contains the requested
// username.
var ErrUserNotFound = errors.New("user not found")

// ErrAlwataniAccountNotFound indicates no tenant's link table references the
// requested Alwatani account.
var ErrAlwataniAccountNotFound = errors.New("alwatani account not found")

// ErrTenantAlreadyExists indicates a directory record already exists for the
// tenant username being provisioned.
var ErrTenantAlreadyExists = errors.New("tenant already exists")

// ErrInvalidUsername indicates a tenant username that does not match the
// required admin@<domain> format.
var ErrInvalidUsername = errors.New("invalid username: expected admin@<domain>")

// ErrInvalidDatabaseName indicates a domain that sanitizes to an empty or
// unusable database name.
var ErrInvalidDatabaseName = errors.New("invalid database name")

// ErrProvisioningPartial indicates provisioning created the tenant database
// but failed before the directory and seed records were complete. The
// orphaned database requires operator cleanup.
var ErrProvisioningPartial = errors.New("provisioning partially completed")
