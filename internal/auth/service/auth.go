package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/medmigrate/internal/auth/domain"
	"github.com/aussiebroadwan/medmigrate/internal/auth/store"
	"github.com/aussiebroadwan/medmigrate/pkg/idx"
	"github.com/aussiebroadwan/medmigrate/pkg/slogx"
)

// PasswordHasher is satisfied by *cryptox.Hasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) bool
}

// AuthService implements registration, login and access to protected
// resources on top of a credential store.
type AuthService struct {
	Store  store.Store
	Hasher PasswordHasher
	Tokens *TokenService

	dummyOnce sync.Once
	dummyHash string
}

// Register creates a principal with a freshly salted hash of password.
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	log := slogx.FromContext(ctx)

	if username == "" || password == "" {
		return ErrInvalidRequest
	}

	_, err := s.Store.Principals().GetPrincipalByUsername(ctx, username)
	if err == nil {
		log.Info("registration rejected, username taken", slog.String("username", username))
		return ErrDuplicatePrincipal
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup principal: %w", err)
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	p := domain.Principal{
		ID:           idx.NewAt(now).String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
	}

	// The store's uniqueness check is authoritative; a concurrent registration
	// for the same username lands here.
	if err := s.Store.Principals().CreatePrincipal(ctx, p); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			log.Info("registration lost race for username", slog.String("username", username))
			return ErrDuplicatePrincipal
		}
		return fmt.Errorf("create principal: %w", err)
	}

	log.Info("principal registered",
		slog.String("principal_id", p.ID),
		slog.String("username", username),
	)
	return nil
}

// Login verifies the password and issues an access token with the default TTL.
// Unknown usernames and wrong passwords both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.AccessToken, error) {
	log := slogx.FromContext(ctx)

	p, err := s.Store.Principals().GetPrincipalByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		// Burn the same hashing cost as a real check.
		s.Hasher.Verify(password, s.dummy())
		log.Info("login failed", slog.String("username", username))
		return domain.AccessToken{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("lookup principal: %w", err)
	}

	if !s.Hasher.Verify(password, p.PasswordHash) {
		log.Info("login failed", slog.String("username", username))
		return domain.AccessToken{}, ErrInvalidCredentials
	}

	tok, err := s.Tokens.Issue(ctx, p.Username, 0)
	if err != nil {
		return domain.AccessToken{}, err
	}

	log.Info("login succeeded", slog.String("username", username))
	return tok, nil
}

// AccessProtected returns the subject of a valid token.
func (s *AuthService) AccessProtected(ctx context.Context, token string) (string, error) {
	subject, err := s.Tokens.Verify(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return subject, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		// On error the dummy stays empty and Verify returns false early.
		s.dummyHash, _ = s.Hasher.Hash("dummy-password-for-timing")
	})
	return s.dummyHash
}
