package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const (
	appName = "traefik-tailscale"

	shutdownTimeout = 30 * time.Second
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// options holds the command line flags. Flags only override configuration
// when they are set explicitly.
type options struct {
	configFile      string
	envFile         string
	listenAddr      string
	descriptor      string
	refreshInterval time.Duration
	logLevel        string
	logFormat       string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Serve Traefik dynamic configuration built from a Tailscale tailnet",
		Long: `traefik-tailscale reads the tailnet status from the local tailscaled LocalAPI
and turns every reachable peer into Traefik routers and services. Traefik
polls the result from GET /config through its HTTP provider.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file read before the environment (ignored when missing)")
	flags.StringVar(&opts.descriptor, "socket", "", "LocalAPI descriptor: socket path, named pipe or tcp://host:port[:token] (default: discover)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (json or console)")

	rootCmd.Flags().StringVar(&opts.listenAddr, "listen", "", "HTTP listen address (default :8080)")
	rootCmd.Flags().DurationVar(&opts.refreshInterval, "refresh-interval", 0, "configuration refresh interval (default 30s)")

	rootCmd.AddCommand(newRenderCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version)
			return err
		},
	}
}
