package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/httpapi"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/metrics"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/refresh"
)

// runServe checks the LocalAPI once, then runs the refresh loop and the
// HTTP server until ctx is cancelled.
func runServe(ctx context.Context, cmd *cobra.Command, opts *options) error {
	a, err := setup(ctx, cmd, opts)
	if err != nil {
		return err
	}
	cfg, logger, p := a.cfg, a.logger, a.provider
	defer func() { _ = logger.Sync() }()

	fields := []zap.Field{zap.String("version", version), zap.String("endpoint", a.endpoint)}
	logger.Info("starting "+appName, append(fields, cfg.LogFields()...)...)

	if err := p.TestConnection(ctx); err != nil {
		logger.Error("cannot reach tailscaled LocalAPI", zap.String("endpoint", a.endpoint), zap.Error(err))
		return fmt.Errorf("cannot reach tailscaled LocalAPI at %s: %w", a.endpoint, err)
	}

	m := metrics.New()
	loop, err := refresh.NewLoop(p, refresh.NewCache(), refresh.Options{
		Interval: cfg.RefreshInterval,
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	server := httpapi.NewServer(httpapi.Config{ListenAddr: cfg.ListenAddr}, loop, p, m, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return server.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("stopped with error", zap.Error(err))
		return err
	}
	logger.Info("stopped")
	return nil
}
