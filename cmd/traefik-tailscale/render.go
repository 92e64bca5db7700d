package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/traefik"
)

func newRenderCommand(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the dynamic configuration once and exit",
		Long: `render fetches the tailnet status once, builds the Traefik dynamic
configuration and writes it to stdout. The YAML output can be used with
Traefik's file provider.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), cmd, opts, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format (json or yaml)")

	return cmd
}

func runRender(ctx context.Context, cmd *cobra.Command, opts *options, formatName string) error {
	format, err := traefik.ParseFormat(formatName)
	if err != nil {
		return err
	}

	a, err := setup(ctx, cmd, opts)
	if err != nil {
		return err
	}
	logger := a.logger
	defer func() { _ = logger.Sync() }()

	cfg, stats, err := a.provider.GenerateConfig(ctx)
	if err != nil {
		return err
	}
	logger.Debug("rendered configuration",
		zap.String("endpoint", a.endpoint),
		zap.Int("peers", stats.PeersSeen),
		zap.Int("included", stats.PeersIncluded))

	if err := traefik.Encode(cmd.OutOrStdout(), cfg, format); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	return nil
}
