package authsdk

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the JSON body of every error response. Client code should
// use the APIError type from errors.go instead.
type ErrorResponse struct {
	// Error is the machine readable code (e.g., "invalid_request", "invalid_grant")
	Error string `json:"error" example:"invalid_grant"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description" example:"invalid credentials"`
}

// ============================================================================
// Credential Types
// ============================================================================

// MessageResponse carries a human readable confirmation.
// Returned from GET / and POST /register.
type MessageResponse struct {
	Message string `json:"message" example:"user registered"`
}

// TokenResponse is returned from POST /login. It follows the OAuth2 password
// grant response shape so standard OAuth2 clients can consume it.
type TokenResponse struct {
	// AccessToken is the HS256 JWT used to authenticate API requests
	AccessToken string `json:"access_token"`

	// TokenType is always "bearer"
	TokenType string `json:"token_type" example:"bearer"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in" example:"1500"`
}

// ============================================================================
// Protected Resource Types
// ============================================================================

// PatientsResponse is returned from GET /patients for an authenticated caller.
type PatientsResponse struct {
	Message string `json:"message" example:"protected data available for alice"`

	// Subject is the username the access token was issued to
	Subject string `json:"subject" example:"alice"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the credential store connection status
	Database string `json:"database"`

	// Signer indicates the JWT signing capability status
	Signer string `json:"signer"`

	// Principals is the number of registered principals, when the store answered
	Principals *int64 `json:"principals,omitempty"`
}
