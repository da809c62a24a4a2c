package http

import (
	"net/http"

	"github.com/aussiebroadwan/medmigrate/pkg/authsdk"
	"github.com/aussiebroadwan/medmigrate/pkg/httpx"
)

// PatientsHandler godoc
//
//	@Summary		Protected patient data
//	@Description	Returns a payload naming the authenticated principal. Requires a valid, unexpired bearer token.
//	@Tags			Protected
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.PatientsResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		429	{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/patients [get].
func PatientsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// AuthnMiddleware guarantees a subject.
		subject, ok := httpx.SubjectFromContext(r.Context())
		if !ok {
			authsdk.ErrInvalidToken.WriteError(w)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, authsdk.PatientsResponse{
			Message: "protected data available for " + subject,
			Subject: subject,
		})
	}
}
