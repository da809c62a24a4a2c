//go:build integration

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLivezEndpoint verifies the liveness check endpoint.
func TestLivezEndpoint(t *testing.T) {
	client := setupAuthService(t)

	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)
}

// TestReadyzEndpoint verifies readiness reports the Mongo store and signer.
func TestReadyzEndpoint(t *testing.T) {
	client := setupAuthService(t)
	registerAndLogin(t, client)

	health, err := client.GetReadiness(t.Context())
	assertHealthy(t, health, err)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)
	require.Equal(t, "ok", health.Checks.Signer)
	require.NotNil(t, health.Checks.Principals)
	require.Equal(t, int64(1), *health.Checks.Principals)
}
