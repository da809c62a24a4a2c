package domain

import "time"

// TokenTypeBearer is the token_type returned with every access token.
const TokenTypeBearer = "bearer"

// AccessToken is what a successful login returns. It is never persisted.
type AccessToken struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
	ExpiresIn time.Duration
}
