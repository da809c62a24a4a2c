package authsdk_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	authhttp "github.com/aussiebroadwan/medmigrate/internal/auth/http"
	"github.com/aussiebroadwan/medmigrate/internal/auth/service"
	"github.com/aussiebroadwan/medmigrate/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/medmigrate/pkg/authsdk"
	"github.com/aussiebroadwan/medmigrate/pkg/cryptox"
	"github.com/aussiebroadwan/medmigrate/pkg/httpx"
	"github.com/aussiebroadwan/medmigrate/pkg/jwtx"
	"github.com/aussiebroadwan/medmigrate/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const clientTestSecret = "client-test-secret"

// newTestServer runs the real router over a SQLite store in a temp dir.
func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations(context.Background()))

	signer, err := jwtx.NewSignerHS256([]byte(clientTestSecret))
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256([]byte(clientTestSecret), jwtx.VerifyOptions{Issuer: "medmigrate-auth"})
	require.NoError(t, err)

	auth := &service.AuthService{
		Store:  st,
		Hasher: cryptox.NewHasher(""),
		Tokens: &service.TokenService{
			Signer:   signer,
			Verifier: verifier,
			Issuer:   "medmigrate-auth",
		},
	}

	relaxed := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	router := authhttp.NewRouter(auth, st, signer,
		httpx.Limits{Strict: relaxed, Lenient: relaxed, Public: relaxed},
		"client-test", slogx.Discard())
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, st
}

func TestClientFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	client := authsdk.NewSDKClient(srv.URL + "/")
	ctx := t.Context()

	msg, err := client.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "user registered", msg.Message)

	tok, err := client.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "bearer", tok.TokenType)
	require.Equal(t, int(jwtx.DefaultAccessTokenTTL.Seconds()), tok.ExpiresIn)

	data, err := client.Patients(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice", data.Subject)
}

func TestClientErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	client := authsdk.NewSDKClient(srv.URL)
	ctx := t.Context()

	_, err := client.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	_, err = client.Register(ctx, "alice", "again")
	require.ErrorIs(t, err, authsdk.ErrDuplicatePrincipal)

	_, err = client.Register(ctx, "", "x")
	require.ErrorIs(t, err, authsdk.ErrInvalidRequest)

	_, err = client.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)

	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "invalid credentials", apiErr.Description)

	_, err = client.Patients(ctx, "garbage")
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)
}

func TestClientHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	client := authsdk.NewSDKClient(srv.URL)

	live, err := client.GetLiveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "client-test", live.Version)

	ready, err := client.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
}

func TestClientReadinessDegraded(t *testing.T) {
	srv, st := newTestServer(t)
	require.NoError(t, st.Close())

	health, err := authsdk.NewSDKClient(srv.URL).GetReadiness(t.Context())
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeServiceUnavailable, apiErr.Code)

	require.NotNil(t, health)
	require.Equal(t, "degraded", health.Status)
	require.Equal(t, "error", health.Checks.Database)
}

func TestAPIErrorIs(t *testing.T) {
	err := &authsdk.APIError{StatusCode: http.StatusUnauthorized, Code: "invalid_grant", Description: "anything"}
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)
	require.NotErrorIs(t, err, authsdk.ErrInvalidToken)

	// Same code, different status.
	other := &authsdk.APIError{StatusCode: http.StatusBadRequest, Code: "invalid_grant"}
	require.NotErrorIs(t, other, authsdk.ErrInvalidGrant)

	require.Equal(t, "invalid_grant: anything", err.Error())
}

func TestClientNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := authsdk.NewSDKClient(srv.URL).GetLiveness(t.Context())
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeServerError, apiErr.Code)
}
