package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/medmigrate/internal/auth/domain"
	"github.com/aussiebroadwan/medmigrate/internal/auth/store"
	"github.com/aussiebroadwan/medmigrate/pkg/idx"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type principalsRepo struct {
	q *queries
}

func (r *principalsRepo) GetPrincipalByUsername(ctx context.Context, username string) (domain.Principal, error) {
	row, err := r.q.GetPrincipalByUsername(ctx, username)
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}
	return mapPrincipal(row), nil
}

func (r *principalsRepo) CreatePrincipal(ctx context.Context, p domain.Principal) error {
	id, err := idx.Parse(p.ID)
	if err != nil {
		return fmt.Errorf("sqlite: principal id %q: %w", p.ID, err)
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = id.Time()
	}

	err = r.q.CreatePrincipal(ctx, principalRow{
		ID:           id.String(),
		Username:     p.Username,
		PasswordHash: p.PasswordHash,
		CreatedAt:    createdAt.UTC(),
	})
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *principalsRepo) CountPrincipals(ctx context.Context) (int64, error) {
	return r.q.CountPrincipals(ctx)
}

func mapPrincipal(row principalRow) domain.Principal {
	return domain.Principal{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
	}
}

func isUniqueViolation(err error) bool {
	var serr *moderncsqlite.Error
	if !errors.As(err, &serr) {
		return false
	}

	// NOT NULL and CHECK failures are not conflicts.
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	default:
		return false
	}
}
