// Package provider derives Traefik dynamic configuration from the peers of a
// tailnet.
package provider

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/tailscale"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/traefik"
)

// StatusClient is the part of the LocalAPI client the provider needs.
type StatusClient interface {
	tailscale.StatusSource
	TestConnection(ctx context.Context) error
}

// Provider fetches status from the local daemon and synthesizes
// configuration from it.
type Provider struct {
	client StatusClient
	synth  *Synthesizer
	logger *zap.Logger
}

// NewProvider creates a Provider. A nil logger discards logs.
func NewProvider(client StatusClient, synth *Synthesizer, logger *zap.Logger) (*Provider, error) {
	if client == nil {
		return nil, errors.New("status client cannot be nil")
	}
	if synth == nil {
		return nil, errors.New("synthesizer cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Provider{
		client: client,
		synth:  synth,
		logger: logger.Named("provider"),
	}, nil
}

// GenerateConfig performs one fetch and synthesis pass.
func (p *Provider) GenerateConfig(ctx context.Context) (*traefik.DynamicConfig, Stats, error) {
	status, err := p.client.Status(ctx)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to fetch status: %w", err)
	}

	cfg, stats := p.synth.Synthesize(status)
	p.logger.Info("generated configuration",
		zap.Int("peers", stats.PeersSeen),
		zap.Int("included", stats.PeersIncluded),
		zap.Int("skipped", stats.Skipped))

	return cfg, stats, nil
}

// Status returns the live status document.
func (p *Provider) Status(ctx context.Context) (*tailscale.Status, error) {
	return p.client.Status(ctx)
}

// TestConnection checks that the daemon answers a peerless status request.
func (p *Provider) TestConnection(ctx context.Context) error {
	p.logger.Info("testing connection to tailscaled")
	if err := p.client.TestConnection(ctx); err != nil {
		return fmt.Errorf("failed to connect to tailscaled: %w", err)
	}
	p.logger.Info("connected to tailscaled")
	return nil
}
