package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// GetLiveness checks if the service process is serving requests.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.getHealth(ctx, "/livez")
}

// GetReadiness checks if the service can reach its credential store and sign
// tokens. A 503 still returns the decoded report next to an *APIError, so
// callers can see which check failed.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.getHealth(ctx, "/readyz")
}

func (c *SDKClient) getHealth(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var health HealthResponse
		if err := json.Unmarshal(body, &health); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return &health, nil
	case http.StatusServiceUnavailable:
		var health HealthResponse
		if err := json.Unmarshal(body, &health); err != nil || health.Status == "" {
			return nil, parseErrorResponse(resp, body)
		}
		return &health, &APIError{
			StatusCode:  resp.StatusCode,
			Code:        ErrorCodeServiceUnavailable,
			Description: "service " + health.Status,
		}
	default:
		return nil, parseErrorResponse(resp, body)
	}
}
