package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/medmigrate/internal/auth/store"
	"github.com/aussiebroadwan/medmigrate/pkg/authsdk"
	"github.com/aussiebroadwan/medmigrate/pkg/httpx"
	"github.com/aussiebroadwan/medmigrate/pkg/jwtx"
	"github.com/aussiebroadwan/medmigrate/pkg/slogx"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe reporting the credential store and token signer. Returns 503 when either is unavailable.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	signer jwtx.Signer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := slogx.FromContext(ctx)

		checks := &authsdk.HealthChecks{
			Database: "ok",
			Signer:   "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(ctx); err != nil {
			log.Warn("readiness: store ping failed", "err", err)
			checks.Database = "error"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		} else if n, err := st.Principals().CountPrincipals(ctx); err == nil {
			checks.Principals = &n
		}

		if signer == nil || signer.Validate() != nil {
			checks.Signer = "error: signer not configured"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
