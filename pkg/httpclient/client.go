// Package httpclient is a Go client for the provider's HTTP API.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/tailscale"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/traefik"
)

// Client provides HTTP client for the provider API
type Client struct {
	config     Config
	httpClient *http.Client
	baseURL    *url.URL
}

// NewClient creates a new provider HTTP client
func NewClient(config Config) (*Client, error) {
	config.SetDefaults()

	baseURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ServerURL: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid ServerURL: scheme must be http or https, got %q", baseURL.Scheme)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		baseURL:    baseURL,
	}, nil
}

// GetHealth returns the health document of the provider
func (c *Client) GetHealth(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.getJSON(ctx, "/health", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get health: %w", err)
	}
	return &resp, nil
}

// GetConfig returns the dynamic configuration encoded in format, exactly
// as served.
func (c *Client) GetConfig(ctx context.Context, format traefik.Format) ([]byte, error) {
	query := url.Values{}
	if format != "" {
		query.Set("format", string(format))
	}

	body, err := c.doRequestWithQuery(ctx, "/config", query)
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}
	return body, nil
}

// GetDynamicConfig returns the decoded dynamic configuration.
func (c *Client) GetDynamicConfig(ctx context.Context) (*traefik.DynamicConfig, error) {
	var cfg traefik.DynamicConfig
	if err := c.getJSON(ctx, "/config", nil, &cfg); err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}
	return &cfg, nil
}

// GetStatus returns the live tailnet status seen by the provider
func (c *Client) GetStatus(ctx context.Context) (*tailscale.Status, error) {
	var status tailscale.Status
	if err := c.getJSON(ctx, "/status", nil, &status); err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &status, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, respBody interface{}) error {
	body, err := c.doRequestWithQuery(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// doRequestWithQuery performs a GET request and returns the response body
func (c *Client) doRequestWithQuery(ctx context.Context, path string, queryParams url.Values) ([]byte, error) {
	u := &url.URL{Path: strings.TrimPrefix(path, "/")}
	if len(queryParams) > 0 {
		u.RawQuery = queryParams.Encode()
	}
	fullURL := c.base().ResolveReference(u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
		_ = json.Unmarshal(bodyBytes, &apiErr.Response)
		return nil, apiErr
	}

	return bodyBytes, nil
}

// base returns the base URL with a trailing slash, keeping any path prefix.
func (c *Client) base() *url.URL {
	u := *c.baseURL
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &u
}
