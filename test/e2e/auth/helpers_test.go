//go:build integration

package auth_test

import (
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/medmigrate/internal/auth/app"
	"github.com/aussiebroadwan/medmigrate/internal/testutil/mongotest"
	"github.com/aussiebroadwan/medmigrate/pkg/authsdk"
	"github.com/aussiebroadwan/medmigrate/pkg/httpx"
	"github.com/stretchr/testify/require"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * Each test runs the fully wired application against its own MongoDB
 * container and talks to it through the SDK client.
 */

const (
	testSecret   = "e2e-test-secret-value"
	testUsername = "alice"
	testPassword = "Alice123!"
)

// relaxedLimits keeps rapid test traffic from tripping the rate limiter.
func relaxedLimits() httpx.Limits {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
	return httpx.Limits{Strict: cfg, Lenient: cfg, Public: cfg}
}

// setupAuthService starts the auth service with relaxed rate limits and
// returns a client for it.
func setupAuthService(t *testing.T) *authsdk.SDKClient {
	return setupAuthServiceWithLimits(t, relaxedLimits())
}

// setupAuthServiceWithLimits starts the auth service over a fresh MongoDB
// container using limits. Everything is torn down when t finishes.
func setupAuthServiceWithLimits(t *testing.T, limits httpx.Limits) *authsdk.SDKClient {
	t.Helper()

	cfg := app.Config{
		SecretKey:            testSecret,
		AccessTTL:            25 * time.Minute,
		Issuer:               "medmigrate-auth",
		StoreDriver:          app.DriverMongo,
		MongoURI:             mongotest.StartURI(t),
		MongoDB:              "medical",
		MongoUsersCollection: "users",
		PepperFile:           filepath.Join(t.TempDir(), "pepper"),
		Env:                  "test",
		LogLevel:             "warn",
		LogFormat:            "json",
		ShutdownGracePeriod:  time.Second,
		Limits:               limits,
	}

	application, err := app.New(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		if err := application.Shutdown(); err != nil {
			t.Logf("failed to shut down application: %v", err)
		}
	})

	return authsdk.NewSDKClient(srv.URL)
}

// registerAndLogin registers the test user and returns its token response.
func registerAndLogin(t *testing.T, client *authsdk.SDKClient) *authsdk.TokenResponse {
	t.Helper()

	_, err := client.Register(t.Context(), testUsername, testPassword)
	require.NoError(t, err, "Register should succeed")

	tok, err := client.Login(t.Context(), testUsername, testPassword)
	require.NoError(t, err, "Login should succeed")
	assertTokenResponse(t, tok)

	return tok
}

// assertTokenResponse verifies a token response has all required fields.
func assertTokenResponse(t *testing.T, resp *authsdk.TokenResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.AccessToken, "Access token should not be empty")
	require.Equal(t, "bearer", resp.TokenType, "Token type should be bearer")
	require.Equal(t, 1500, resp.ExpiresIn)
	require.Len(t, strings.Split(resp.AccessToken, "."), 3, "Access token should be a compact JWT")
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
