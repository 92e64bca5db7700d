package main

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/config"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/localapi"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/logging"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/platform"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/provider"
)

// loadConfig reads every configuration source, applies the flags that were
// set on cmd and validates the result.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		File:    opts.configFile,
		EnvFile: opts.envFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("socket") {
		cfg.Descriptor = opts.descriptor
	}
	if changed("listen") {
		cfg.ListenAddr = opts.listenAddr
	}
	if changed("refresh-interval") {
		cfg.RefreshInterval = opts.refreshInterval
	}
	if changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// app holds what setup wires together.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	provider *provider.Provider
	// endpoint names the LocalAPI transport without its credentials.
	endpoint string
}

// setup loads the configuration, builds the logger and wires the provider
// to the LocalAPI. An empty descriptor is resolved by platform discovery
// and written back to the returned configuration.
func setup(ctx context.Context, cmd *cobra.Command, opts *options) (*app, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	if cfg.Descriptor == "" {
		cfg.Descriptor, err = platform.NewLocator(logger).Default(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to locate tailscaled: %w", err)
		}
	}

	transport, err := localapi.NewTransport(cfg.Descriptor, cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}

	client := localapi.NewClient(transport, logger)
	synth := provider.NewSynthesizer(&cfg.Policy, clock.New(), logger)
	p, err := provider.NewProvider(client, synth, logger)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, provider: p, endpoint: client.Endpoint()}, nil
}
