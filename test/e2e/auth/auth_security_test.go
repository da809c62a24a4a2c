//go:build integration

package auth_test

import (
	"testing"

	"github.com/aussiebroadwan/medmigrate/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestInvalidCredentials verifies wrong passwords and unknown users get the
// same rejection.
func TestInvalidCredentials(t *testing.T) {
	client := setupAuthService(t)
	registerAndLogin(t, client)

	_, wrongPassword := client.Login(t.Context(), testUsername, "wrong-password")
	require.ErrorIs(t, wrongPassword, authsdk.ErrInvalidGrant)

	_, unknownUser := client.Login(t.Context(), "mallory", testPassword)
	require.ErrorIs(t, unknownUser, authsdk.ErrInvalidGrant)

	require.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

// TestInvalidAccessToken verifies the protected endpoint rejects bad tokens.
func TestInvalidAccessToken(t *testing.T) {
	client := setupAuthService(t)
	tok := registerAndLogin(t, client)

	_, err := client.Patients(t.Context(), "invalid-token-12345")
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)

	// Flip one character of the signature.
	tampered := []byte(tok.AccessToken)
	last := len(tampered) - 2
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}
	_, err = client.Patients(t.Context(), string(tampered))
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)
}
