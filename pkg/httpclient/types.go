package httpclient

import (
	"fmt"
	"time"
)

// Config holds client configuration
type Config struct {
	// ServerURL is the base URL of the provider (e.g., "http://localhost:8080")
	ServerURL string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = "http://localhost:8080"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// APIError is returned for responses with status >= 400. Response is zero
// when the body was not an ErrorResponse.
type APIError struct {
	StatusCode int
	Response   ErrorResponse
	Body       string
}

func (e *APIError) Error() string {
	if e.Response.Message != "" {
		return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Response.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Body)
}
