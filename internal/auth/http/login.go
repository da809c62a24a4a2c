package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/medmigrate/internal/auth/service"
	"github.com/aussiebroadwan/medmigrate/pkg/authsdk"
	"github.com/aussiebroadwan/medmigrate/pkg/httpx"
)

// LoginHandler serves POST /login. It accepts the OAuth2 password grant form
// (RFC 6749 section 4.3); grant_type may be omitted and scope is ignored.
type LoginHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Log in
//	@Description	Exchanges a username and password for a bearer access token (HS256 JWT, 25 minute default lifetime).
//	@Tags			Credentials
//	@Accept			application/x-www-form-urlencoded
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			grant_type	formData	string					false	"Grant type"	Enums(password)
//	@Param			username	formData	string					true	"Username"
//	@Param			password	formData	string					true	"Password"
//	@Param			scope		formData	string					false	"Ignored"
//	@Success		200			{object}	authsdk.TokenResponse	"access_token, token_type, expires_in"
//	@Failure		400			{object}	authsdk.ErrorResponse	"invalid_request or unsupported_grant_type"
//	@Failure		401			{object}	authsdk.ErrorResponse	"invalid_grant"
//	@Failure		429			{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Failure		500			{object}	authsdk.ErrorResponse	"server_error"
//	@Header			200			{string}	Cache-Control			"no-store"
//	@Header			200			{string}	Pragma					"no-cache"
//	@Router			/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !parseCredentialForm(w, r) {
		return
	}

	if gt := r.PostForm.Get("grant_type"); gt != "" && gt != "password" {
		authsdk.ErrUnsupportedGrantType.WriteError(w)
		return
	}

	username, password, ok := readCredentials(w, r)
	if !ok {
		return
	}

	tok, err := h.AuthService.Login(ctx, username, password)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidGrant.WriteError(w)
		return
	default:
		writeServerError(w, r, "login failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken: tok.Token,
		TokenType:   tok.TokenType,
		ExpiresIn:   int(tok.ExpiresIn.Seconds()),
	})
}
