package httpapi

// ServiceName is reported by the health endpoints.
const ServiceName = "Traefik Tailscale Provider"

// HealthResponse represents the response from / and /health
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
