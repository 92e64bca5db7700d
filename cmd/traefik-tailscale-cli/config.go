package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/traefik"
)

func newConfigCommand() *cobra.Command {
	var (
		format  string
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the generated Traefik configuration",
		Long:  "Fetch the dynamic configuration the provider currently serves to Traefik",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if summary {
				return runConfigSummary(cmd)
			}
			return runConfig(cmd, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format (json or yaml)")
	cmd.Flags().BoolVar(&summary, "summary", false, "print router and service counts only")

	return cmd
}

func runConfig(cmd *cobra.Command, formatName string) error {
	format, err := traefik.ParseFormat(formatName)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	raw, err := client.GetConfig(ctx, format)
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(raw)
	return err
}

func runConfigSummary(cmd *cobra.Command) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg, err := client.GetDynamicConfig(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	counts := cfg.Counts()
	for _, section := range []string{"http", "tcp", "udp"} {
		c := counts[section]
		fmt.Fprintf(out, "%-4s routers: %d  services: %d\n", section, c.Routers, c.Services)
	}
	return nil
}
