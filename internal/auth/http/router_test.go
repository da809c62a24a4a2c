package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
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

const (
	testSecret = "router-test-secret"
	testIssuer = "medmigrate-auth"
)

func relaxedLimits() httpx.Limits {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	return httpx.Limits{Strict: cfg, Lenient: cfg, Public: cfg}
}

type testEnv struct {
	router *authhttp.Router
	store  *sqlite.Store
}

func newTestEnv(t *testing.T, limits httpx.Limits) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations(context.Background()))

	signer, err := jwtx.NewSignerHS256([]byte(testSecret))
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256([]byte(testSecret), jwtx.VerifyOptions{Issuer: testIssuer})
	require.NoError(t, err)

	auth := &service.AuthService{
		Store:  st,
		Hasher: cryptox.NewHasher(""),
		Tokens: &service.TokenService{
			Signer:    signer,
			Verifier:  verifier,
			Issuer:    testIssuer,
			AccessTTL: jwtx.DefaultAccessTokenTTL,
		},
	}

	r := authhttp.NewRouter(auth, st, signer, limits, "test", slogx.Discard())
	r.ApplyRoutes()
	return &testEnv{router: r, store: st}
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, path, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, username, password string) {
	t.Helper()
	rec := e.postForm(t, "/register", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (e *testEnv) login(t *testing.T, username, password string) authsdk.TokenResponse {
	t.Helper()
	rec := e.postForm(t, "/login", url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tok authsdk.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	return tok
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) authsdk.ErrorResponse {
	t.Helper()
	var body authsdk.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestIndex(t *testing.T) {
	e := newTestEnv(t, relaxedLimits())

	rec := e.get(t, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var msg authsdk.MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	require.Equal(t, "Welcome to the medical data migration API", msg.Message)

	require.Equal(t, http.StatusNotFound, e.get(t, "/nope", "").Code)
}

func TestRegisterHandler(t *testing.T) {
	e := newTestEnv(t, relaxedLimits())

	rec := e.postForm(t, "/register", url.Values{"username": {"alice"}, "password": {"s3cret"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var msg authsdk.MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	require.Equal(t, "user registered", msg.Message)

	tests := []struct {
		name     string
		form     url.Values
		wantCode string
	}{
		{"duplicate", url.Values{"username": {"alice"}, "password": {"other"}}, authsdk.ErrorCodeDuplicatePrincipal},
		{"missing username", url.Values{"password": {"x"}}, authsdk.ErrorCodeInvalidRequest},
		{"missing password", url.Values{"username": {"bob"}}, authsdk.ErrorCodeInvalidRequest},
		{"empty form", url.Values{}, authsdk.ErrorCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.postForm(t, "/register", tt.form)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tt.wantCode, decodeError(t, rec).Error)
		})
	}

	n, err := e.store.Principals().CountPrincipals(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestRegisterRejectsJSONBody(t *testing.T) {
	e := newTestEnv(t, relaxedLimits())

	req := httptest.NewRequest(http.MethodPost, "/register",
		strings.NewReader(`{"username":"alice","password":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, authsdk.ErrorCodeInvalidRequest, decodeError(t, rec).Error)
}

func TestRegisterAcceptsMultipart(t *testing.T) {
	e := newTestEnv(t, relaxedLimits())

	body := "--b\r\n" +
		"Content-Disposition: form-data; name=\"username\"\r\n\r\nalice\r\n" +
		"--b\r\n" +
		"Content-Disposition: form-data; name=\"password\"\r\n\r\ns3cret\r\n" +
		"--b--\r\n"
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	e.login(t, "alice", "s3cret")
}

func TestLoginHandler(t *testing.T) {
	e := newTestEnv(t, relaxedLimits())
	e.register(t, "alice", "s3cret")

	t.Run("success", func(t *testing.T) {
		tok := e.login(t, "alice", "s3cret")
		require.NotEmpty(t, tok.AccessToken)
		require.Equal(t, "bearer", tok.TokenType)
		require.Equal(t, 1500, tok.ExpiresIn)
	})

	t.Run("grant_type optional and scope ignored", func(t *testing.T) {
		rec := e.postForm(t, "/login", url.Values{
			"username": {"alice"},
			"password": {"s3cret"},
			"scope":    {"anything"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantCode   string
	}{
		{
			name:       "wrong password",
			form:       url.Values{"username": {"alice"}, "password": {"wrong"}},
			wantStatus: http.StatusUnauthorized,
			wantCode:   authsdk.ErrorCodeInvalidGrant,
		},
		{
			name:       "unknown user",
			form:       url.Values{"username": {"nobody"}, "password": {"s3cret"}},
			wantStatus: http.StatusUnauthorized,
			wantCode:   authsdk.ErrorCodeInvalidGrant,
		},
		{
			name:       "unsupported grant",
			form:       url.Values{"grant_type": {"client_credentials"}, "username": {"alice"}, "password": {"s3cret"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   authsdk.ErrorCodeUnsupportedGrantType,
		},
		{
			name:       "missing password",
			form:       url.Values{"username": {"alice"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   authsdk.ErrorCodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.postForm(t, "/login", tt.form)
			require.Equal(t, tt.wantStatus, rec.Code)
			require.Equal(t, tt.wantCode, decodeError(t, rec).Error)
		})
	}

	t.Run("failures share a description", func(t *testing.T) {
		a := decodeError(t, e.postForm(t, "/login", url.Values{"username": {"alice"}, "password": {"wrong"}}))
		b := decodeError(t, e.postForm(t, "/login", url.Values{"username": {"nobody"}, "password": {"x"}}))
		require.Equal(t, a, b)
	})
}

func TestPatientsHandler(t *testing.T) {
	e := newTestEnv(t, relaxedLimits())
	e.register(t, "alice", "s3cret")
	tok := e.login(t, "alice", "s3cret")

	t.Run("valid token", func(t *testing.T) {
		rec := e.get(t, "/patients", tok.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var out authsdk.PatientsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.Equal(t, "alice", out.Subject)
		require.Contains(t, out.Message, "alice")
	})

	forged, err := func() (string, error) {
		other, err := jwtx.NewSignerHS256([]byte("not-the-server-secret"))
		if err != nil {
			return "", err
		}
		return other.Sign(jwtx.NewAccessClaims("alice", testIssuer, time.Hour, time.Now()))
	}()
	require.NoError(t, err)

	signer, err := jwtx.NewSignerHS256([]byte(testSecret))
	require.NoError(t, err)
	expired, err := signer.Sign(jwtx.NewAccessClaims("alice", testIssuer, time.Minute, time.Now().Add(-time.Hour)))
	require.NoError(t, err)

	for name, bearer := range map[string]string{
		"missing": "",
		"garbage": "not-a-jwt",
		"forged":  forged,
		"expired": expired,
	} {
		t.Run(name, func(t *testing.T) {
			rec := e.get(t, "/patients", bearer)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
			require.Equal(t, authsdk.ErrorCodeInvalidToken, decodeError(t, rec).Error)
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEnv(t, relaxedLimits())
	e.register(t, "alice", "s3cret")

	rec := e.get(t, "/livez", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var live authsdk.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &live))
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)
	require.Nil(t, live.Checks)

	rec = e.get(t, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ready authsdk.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Signer)
	require.NotNil(t, ready.Checks.Principals)
	require.Equal(t, int64(1), *ready.Checks.Principals)

	t.Run("store down", func(t *testing.T) {
		require.NoError(t, e.store.Close())

		rec := e.get(t, "/readyz", "")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var out authsdk.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.Equal(t, "degraded", out.Status)
		require.Equal(t, "error", out.Checks.Database)

		// Liveness does not depend on the store.
		require.Equal(t, http.StatusOK, e.get(t, "/livez", "").Code)
	})
}

func TestSwaggerDoc(t *testing.T) {
	e := newTestEnv(t, relaxedLimits())

	rec := e.get(t, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Medical Data Migration API")
	require.Contains(t, rec.Body.String(), "/patients")
}

func TestRequestIDEchoed(t *testing.T) {
	e := newTestEnv(t, relaxedLimits())

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set(slogx.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, "req-123", rec.Header().Get(slogx.RequestIDHeader))
}

func TestRegisterIsRateLimited(t *testing.T) {
	limits := relaxedLimits()
	limits.Strict = httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	e := newTestEnv(t, limits)

	for i := range 2 {
		rec := e.postForm(t, "/register", url.Values{"username": {"u"}, "password": {"p"}})
		require.NotEqual(t, http.StatusTooManyRequests, rec.Code, "request %d", i+1)
	}

	rec := e.postForm(t, "/register", url.Values{"username": {"u"}, "password": {"p"}})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "rate_limit_exceeded", decodeError(t, rec).Error)
}

func TestLoginRateLimitIsPerUsername(t *testing.T) {
	limits := relaxedLimits()
	limits.Strict = httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	e := newTestEnv(t, limits)

	form := func(user string) url.Values {
		return url.Values{"username": {user}, "password": {"wrong"}}
	}

	require.Equal(t, http.StatusUnauthorized, e.postForm(t, "/login", form("alice")).Code)
	require.Equal(t, http.StatusTooManyRequests, e.postForm(t, "/login", form("alice")).Code)

	// A different username from the same address has its own bucket.
	require.Equal(t, http.StatusUnauthorized, e.postForm(t, "/login", form("bob")).Code)
}

func TestServerErrorCarriesRequestID(t *testing.T) {
	e := newTestEnv(t, relaxedLimits())
	require.NoError(t, e.store.Close())

	form := url.Values{"username": {"alice"}, "password": {"s3cret"}}
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(slogx.RequestIDHeader, "req-500")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	require.Equal(t, authsdk.ErrorCodeServerError, body.Error)
	require.Contains(t, body.ErrorDescription, "req-500")
	require.NotContains(t, body.ErrorDescription, "sql")
}
