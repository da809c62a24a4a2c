package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/medmigrate/pkg/slogx"
)

// Authenticator resolves a bearer token to the principal it was issued to.
type Authenticator interface {
	AccessProtected(ctx context.Context, token string) (string, error)
}

// AuthnMiddleware rejects requests without a valid bearer token and stores the
// token subject in the request context.
func AuthnMiddleware(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			subject, err := a.AccessProtected(ctx, raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("bearer token rejected", "err", err)
				return
			}

			ctx = contextWithSubject(ctx, subject)
			ctx = slogx.With(ctx, "sub", subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>". The
// scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, ErrorBody{
		Error:            "invalid_token",
		ErrorDescription: desc,
	})
}
