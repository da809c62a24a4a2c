package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/medmigrate/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (mongo, sqlite)
// implement this and expose repositories as methods so callers depend on the
// narrowest surface they need.
type Store interface {
	Principals() Principals

	// ApplyMigrations brings the schema (or indexes) up to date. It must be
	// safe to call on every start.
	ApplyMigrations(ctx context.Context) error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}

type Principals interface {
	// GetPrincipalByUsername returns ErrNotFound when no principal has the
	// username. Matching is exact and case-sensitive.
	GetPrincipalByUsername(ctx context.Context, username string) (domain.Principal, error)

	// CreatePrincipal inserts p, failing with ErrAlreadyExists when the
	// username is taken. The check is atomic in the backing database.
	CreatePrincipal(ctx context.Context, p domain.Principal) error

	// CountPrincipals returns the number of registered principals.
	CountPrincipals(ctx context.Context) (int64, error)
}
