package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/medmigrate/pkg/authsdk"
	"github.com/aussiebroadwan/medmigrate/pkg/httpx"
)

// LivezHandler godoc
//
//	@Summary		Health Check Endpoint
//	@Description	Liveness probe returning status, uptime and version. Always 200 while the process serves requests.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
		})
	}
}

// IndexHandler godoc
//
//	@Summary		Welcome
//	@Description	Returns a welcome message.
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	authsdk.MessageResponse
//	@Router			/ [get].
func IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{
			Message: "Welcome to the medical data migration API",
		})
	}
}
