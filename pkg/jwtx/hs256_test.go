package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/medmigrate/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	exampleSecret = "test-secret-for-hs256"
	exampleIssuer = "medmigrate-auth"
)

// fixedClock returns a clock pinned to t, whole seconds so NumericDate
// truncation does not blur the boundaries under test.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newPair(t *testing.T, now time.Time) (*jwtx.HS256Signer, *jwtx.HS256Verifier) {
	t.Helper()

	signer, err := jwtx.NewSignerHS256([]byte(exampleSecret))
	require.NoError(t, err)

	verifier, err := jwtx.NewVerifierHS256([]byte(exampleSecret), jwtx.VerifyOptions{
		Issuer: exampleIssuer,
		Clock:  fixedClock(now),
	})
	require.NoError(t, err)

	return signer, verifier
}

func TestHS256SignAndVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer, verifier := newPair(t, now)

	require.Equal(t, "HS256", signer.Alg())
	require.NoError(t, signer.Validate())

	claims := jwtx.NewAccessClaims("alice", exampleIssuer, 25*time.Minute, now)
	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "alice", parsed.Subject)
	require.Equal(t, exampleIssuer, parsed.Issuer)
	require.Equal(t, claims.ID, parsed.ID)
}

func TestHS256ExpiryBoundary(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ttl := 25 * time.Minute

	signer, err := jwtx.NewSignerHS256([]byte(exampleSecret))
	require.NoError(t, err)
	token, err := signer.Sign(jwtx.NewAccessClaims("alice", exampleIssuer, ttl, issued))
	require.NoError(t, err)

	verifyAt := func(at time.Time) error {
		v, err := jwtx.NewVerifierHS256([]byte(exampleSecret), jwtx.VerifyOptions{Clock: fixedClock(at)})
		require.NoError(t, err)
		_, err = v.Verify(token)
		return err
	}

	require.NoError(t, verifyAt(issued))
	require.NoError(t, verifyAt(issued.Add(ttl-time.Second)))

	err = verifyAt(issued.Add(ttl))
	require.ErrorIs(t, err, jwtx.ErrInvalidToken)
	require.ErrorIs(t, err, jwtx.ErrExpired)

	require.ErrorIs(t, verifyAt(issued.Add(ttl+time.Hour)), jwtx.ErrExpired)
}

func TestHS256VerifyFailsForWrongSecret(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	other, err := jwtx.NewSignerHS256([]byte("a-completely-different-secret"))
	require.NoError(t, err)
	token, err := other.Sign(jwtx.NewAccessClaims("alice", exampleIssuer, time.Minute, now))
	require.NoError(t, err)

	_, verifier := newPair(t, now)
	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidToken)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestHS256VerifyFailsForWrongIssuer(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer, verifier := newPair(t, now)

	token, err := signer.Sign(jwtx.NewAccessClaims("alice", "someone-else", time.Minute, now))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestHS256VerifyFailsForMissingSubject(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer, verifier := newPair(t, now)

	token, err := signer.Sign(jwtx.NewAccessClaims("", exampleIssuer, time.Minute, now))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrMissingSubject)
}

func TestHS256VerifyRejectsOtherAlgorithms(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, verifier := newPair(t, now)
	claims := jwtx.NewAccessClaims("alice", exampleIssuer, time.Minute, now)

	t.Run("HS512 with the same secret", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(exampleSecret))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
	})
}

func TestHS256VerifyRejectsTampering(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer, verifier := newPair(t, now)

	token, err := signer.Sign(jwtx.NewAccessClaims("alice", exampleIssuer, time.Minute, now))
	require.NoError(t, err)

	for i := range len(token) {
		tampered := []byte(token)
		if tampered[i] == 'A' {
			tampered[i] = 'B'
		} else {
			tampered[i] = 'A'
		}

		_, err := verifier.Verify(string(tampered))
		require.ErrorIs(t, err, jwtx.ErrInvalidToken, "tampering byte %d should fail", i)
	}
}

func TestHS256VerifyRejectsGarbage(t *testing.T) {
	_, verifier := newPair(t, time.Now())

	for _, raw := range []string{"", "garbage-token", "a.b.c", "....."} {
		_, err := verifier.Verify(raw)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken, "input %q", raw)
	}
}

func TestHS256RejectsShortSecrets(t *testing.T) {
	_, err := jwtx.NewSignerHS256([]byte("short"))
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)

	_, err = jwtx.NewVerifierHS256(nil, jwtx.VerifyOptions{})
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}
