package domain

import "time"

// Principal is a registered identity. Username is the login handle and the
// subject of every token issued for it.
type Principal struct {
	ID           string
	Username     string
	PasswordHash string // argon2id PHC string, or a legacy bcrypt digest
	CreatedAt    time.Time
}
