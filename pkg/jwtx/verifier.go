package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifyOptions captures common expectations used by verifiers.
type VerifyOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// Leeway allows small clock skew when validating exp/nbf.
	Leeway time.Duration

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

var (
	// ErrInvalidToken wraps every verification failure, so callers only need
	// errors.Is(err, ErrInvalidToken). The specific cause is wrapped too.
	ErrInvalidToken = errors.New("jwtx: invalid token")

	ErrMalformed      = errors.New("jwtx: malformed token")
	ErrInvalidSig     = errors.New("jwtx: invalid signature")
	ErrIssuer         = errors.New("jwtx: issuer mismatch")
	ErrExpired        = errors.New("jwtx: token expired")
	ErrNotYetValid    = errors.New("jwtx: token not yet valid")
	ErrMissingExpiry  = errors.New("jwtx: token has no expiry")
	ErrMissingSubject = errors.New("jwtx: token has no subject")
	ErrWeakSecret     = errors.New("jwtx: secret too short")
)

// HS256Verifier validates JWTs signed with HS256 under a single secret. It
// never consults any store, a token is valid until it expires or the secret
// changes.
type HS256Verifier struct {
	secret []byte
	opts   VerifyOptions
	parser *jwt.Parser
}

// NewVerifierHS256 creates a verifier for the given secret. The secret is copied.
func NewVerifierHS256(secret []byte, opts VerifyOptions) (*HS256Verifier, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &HS256Verifier{
		secret: append([]byte(nil), secret...),
		opts:   opts,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithStrictDecoding(),
			// Time based claims are checked below against our own clock.
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *HS256Verifier) Verify(tokenStr string) (Claims, error) {
	claims := Claims{}

	token, err := v.parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		return Claims{}, invalid(mapParseError(err))
	}
	if !token.Valid {
		return Claims{}, invalid(ErrInvalidSig)
	}

	if err := claims.ValidateExpiry(v.opts.Clock(), v.opts.Leeway); err != nil {
		return Claims{}, invalid(err)
	}
	if err := claims.ValidateIssuer(v.opts.Issuer); err != nil {
		return Claims{}, invalid(err)
	}
	if err := claims.ValidateSubject(); err != nil {
		return Claims{}, invalid(err)
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSig, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func invalid(cause error) error {
	return fmt.Errorf("%w: %w", ErrInvalidToken, cause)
}
