package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/medmigrate/internal/auth/domain"
	"github.com/aussiebroadwan/medmigrate/pkg/jwtx"
)

// TokenService issues and verifies access tokens. It is stateless: tokens are
// never stored, so verification needs only the signing secret.
type TokenService struct {
	Signer    jwtx.Signer
	Verifier  jwtx.Verifier
	Issuer    string
	AccessTTL time.Duration

	// Clock defaults to time.Now.
	Clock func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *TokenService) defaultTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

// Issue signs a token for subject valid for ttl. A non-positive ttl uses the
// service's AccessTTL.
func (s *TokenService) Issue(_ context.Context, subject string, ttl time.Duration) (domain.AccessToken, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL()
	}

	now := s.now()
	claims := jwtx.NewAccessClaims(subject, s.Issuer, ttl, now)

	token, err := s.Signer.Sign(claims)
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}

	return domain.AccessToken{
		Token:     token,
		TokenType: domain.TokenTypeBearer,
		ExpiresAt: claims.ExpiresAt.Time,
		ExpiresIn: ttl,
	}, nil
}

// Verify checks the token signature and expiry and returns its subject.
// Failures wrap jwtx.ErrInvalidToken.
func (s *TokenService) Verify(_ context.Context, raw string) (string, error) {
	claims, err := s.Verifier.Verify(raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
