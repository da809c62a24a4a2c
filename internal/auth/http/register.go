package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/medmigrate/internal/auth/service"
	"github.com/aussiebroadwan/medmigrate/pkg/authsdk"
	"github.com/aussiebroadwan/medmigrate/pkg/httpx"
)

// RegisterHandler serves POST /register.
type RegisterHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Register a principal
//	@Description	Creates a principal from a username and password. The password is stored only as a salted hash.
//	@Tags			Credentials
//	@Accept			application/x-www-form-urlencoded
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			username	formData	string					true	"Username (case-sensitive)"
//	@Param			password	formData	string					true	"Password"
//	@Success		200			{object}	authsdk.MessageResponse	"user registered"
//	@Failure		400			{object}	authsdk.ErrorResponse	"invalid_request or duplicate_principal"
//	@Failure		429			{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Failure		500			{object}	authsdk.ErrorResponse	"server_error"
//	@Router			/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !parseCredentialForm(w, r) {
		return
	}

	username, password, ok := readCredentials(w, r)
	if !ok {
		return
	}

	err := h.AuthService.Register(ctx, username, password)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "user registered"})
	case errors.Is(err, service.ErrInvalidRequest):
		authsdk.ErrInvalidRequest.WriteError(w)
	case errors.Is(err, service.ErrDuplicatePrincipal):
		authsdk.ErrDuplicatePrincipal.WriteError(w)
	default:
		writeServerError(w, r, "register failed", err)
	}
}

// parseCredentialForm checks the content type and parses the body. It writes
// the error response itself when it returns false.
func parseCredentialForm(w http.ResponseWriter, r *http.Request) bool {
	if !httpx.IsFormContentType(r) {
		authsdk.ErrInvalidContentType.WriteError(w)
		return false
	}

	if err := httpx.ParseForm(r); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return false
	}

	return true
}

// readCredentials returns the username and password fields from a parsed
// form, writing invalid_request when either is empty.
func readCredentials(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return "", "", false
	}

	return username, password, true
}
