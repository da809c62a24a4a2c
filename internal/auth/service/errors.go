package service

import "errors"

var (
	// ErrInvalidRequest reports missing or empty credentials.
	ErrInvalidRequest = errors.New("invalid_request")

	// ErrDuplicatePrincipal reports a registration for a taken username.
	ErrDuplicatePrincipal = errors.New("duplicate_principal")

	// ErrInvalidCredentials is returned for both unknown usernames and wrong
	// passwords so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrUnauthorized reports a token that failed verification. The jwtx
	// cause is wrapped alongside it.
	ErrUnauthorized = errors.New("unauthorized")
)
