package tailscale

import "context"

// StatusSource produces a fresh status snapshot on every call.
type StatusSource interface {
	// Status fetches the full status document, peers included.
	Status(ctx context.Context) (*Status, error)
}
