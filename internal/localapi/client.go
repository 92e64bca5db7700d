package localapi

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/tailscale"
)

const (
	// StatusPath returns the full status document, peers included.
	StatusPath = "/localapi/v0/status"
	// StatusWithoutPeersPath returns daemon metadata only.
	StatusWithoutPeersPath = "/localapi/v0/status?peers=false"

	maxErrorBody = 512
)

// Client fetches and decodes the LocalAPI status document.
type Client struct {
	transport Transport
	logger    *zap.Logger
}

// NewClient creates a Client over transport. A nil logger discards logs.
func NewClient(transport Transport, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		transport: transport,
		logger:    logger.Named("localapi"),
	}
}

// Fetch issues one status request. With includePeers false the daemon omits
// the peer map, which keeps the request cheap for connectivity probes.
//
// Errors wrap ErrConnection or ErrDecode, or are an *APIError for non-2xx
// answers.
func (c *Client) Fetch(ctx context.Context, includePeers bool) (*tailscale.Status, error) {
	path := StatusPath
	if !includePeers {
		path = StatusWithoutPeersPath
	}

	resp, err := c.transport.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := string(resp.Body)
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: body}
	}

	var status tailscale.Status
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		c.logger.Error("failed to parse status document",
			zap.String("endpoint", c.transport.String()),
			zap.Int("bytes", len(resp.Body)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return &status, nil
}

// Status fetches the full status document, peers included.
func (c *Client) Status(ctx context.Context) (*tailscale.Status, error) {
	return c.Fetch(ctx, true)
}

// TestConnection performs a peerless status request and discards the body.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.Fetch(ctx, false)
	return err
}

// Endpoint describes the transport for logs.
func (c *Client) Endpoint() string {
	return c.transport.String()
}

var _ tailscale.StatusSource = (*Client)(nil)
