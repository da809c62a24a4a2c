package sqlite

import (
	"context"
	"database/sql"
	"time"
)

// dbtx is satisfied by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries {
	return &queries{db: db}
}

type principalRow struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

const getPrincipalByUsername = `-- name: GetPrincipalByUsername :one
SELECT id, username, password_hash, created_at FROM principals
WHERE username = ?
LIMIT 1
`

func (q *queries) GetPrincipalByUsername(ctx context.Context, username string) (principalRow, error) {
	row := q.db.QueryRowContext(ctx, getPrincipalByUsername, username)
	var i principalRow
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.PasswordHash,
		&i.CreatedAt,
	)
	return i, err
}

const createPrincipal = `-- name: CreatePrincipal :exec
INSERT INTO principals (id, username, password_hash, created_at)
VALUES (?, ?, ?, ?)
`

func (q *queries) CreatePrincipal(ctx context.Context, arg principalRow) error {
	_, err := q.db.ExecContext(ctx, createPrincipal,
		arg.ID,
		arg.Username,
		arg.PasswordHash,
		arg.CreatedAt,
	)
	return err
}

const countPrincipals = `-- name: CountPrincipals :one
SELECT COUNT(*) FROM principals
`

func (q *queries) CountPrincipals(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPrincipals)
	var count int64
	err := row.Scan(&count)
	return count, err
}
