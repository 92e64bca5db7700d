// Package refresh keeps the generated configuration current.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/metrics"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/provider"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/traefik"
)

var (
	// ErrAlreadyRunning is returned by Run while another Run is active.
	ErrAlreadyRunning = errors.New("refresh loop already running")
	// ErrInvalidInterval is returned for a non-positive refresh interval.
	ErrInvalidInterval = errors.New("refresh interval must be positive")
)

// onDemandKey is the single-flight key; there is only one cache slot.
const onDemandKey = "config"

// Generator produces a configuration from the current tailnet state.
type Generator interface {
	GenerateConfig(ctx context.Context) (*traefik.DynamicConfig, provider.Stats, error)
}

// Options configures a Loop.
type Options struct {
	Interval time.Duration
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// Loop regenerates the configuration on a fixed period and serves reads
// from the cache.
type Loop struct {
	generator Generator
	cache     *Cache
	interval  time.Duration
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    *zap.Logger
	group     singleflight.Group

	mu      sync.Mutex
	running bool
}

// NewLoop creates a Loop writing to cache.
func NewLoop(generator Generator, cache *Cache, opts Options) (*Loop, error) {
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if opts.Interval <= 0 {
		return nil, ErrInvalidInterval
	}
	if cache == nil {
		cache = NewCache()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Loop{
		generator: generator,
		cache:     cache,
		interval:  opts.Interval,
		clock:     opts.Clock,
		metrics:   opts.Metrics,
		logger:    opts.Logger.Named("refresh"),
	}, nil
}

// Cache returns the cache the loop writes to.
func (l *Loop) Cache() *Cache {
	return l.cache
}

// Run refreshes once immediately and then once per interval until ctx is
// done. Cancelling ctx stops the schedule but does not abort a cycle that
// is already running.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	ticker := l.clock.Ticker(l.interval)
	defer ticker.Stop()

	cycleCtx := context.WithoutCancel(ctx)
	l.logger.Info("refresh loop started", zap.Duration("interval", l.interval))

	_ = l.Refresh(cycleCtx)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("refresh loop stopped")
			return nil
		case <-ticker.C:
			_ = l.Refresh(cycleCtx)
		}
	}
}

// Refresh runs one cycle. On failure the cached configuration is kept.
func (l *Loop) Refresh(ctx context.Context) error {
	start := l.clock.Now()
	cfg, stats, err := l.generator.GenerateConfig(ctx)
	now := l.clock.Now()

	l.metrics.ObserveRefresh(err, now.Sub(start), now, cfg, stats.PeersSeen, stats.PeersIncluded)
	if err != nil {
		l.logger.Error("failed to update configuration", zap.Error(err))
		return err
	}

	l.cache.Store(cfg, now)
	l.logger.Info("updated configuration",
		zap.Int("peers", stats.PeersSeen),
		zap.Int("included", stats.PeersIncluded),
		zap.Duration("took", now.Sub(start)))
	return nil
}

// Current returns the cached configuration. While the cache is empty the
// caller generates one itself; concurrent callers share that generation.
// The shared generation is detached from any one caller's cancellation,
// and each caller stops waiting when its own ctx is done.
func (l *Loop) Current(ctx context.Context) (*traefik.DynamicConfig, time.Time, error) {
	if cfg, at := l.cache.Load(); cfg != nil {
		return cfg, at, nil
	}

	genCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(onDemandKey, func() (interface{}, error) {
		// A flight that finished between the check above and DoChan may
		// have filled the cache.
		if cfg, at := l.cache.Load(); cfg != nil {
			return snapshot{cfg, at}, nil
		}

		l.metrics.IncOnDemand()
		l.logger.Debug("cache empty, generating configuration on demand")

		cfg, _, err := l.generator.GenerateConfig(genCtx)
		if err != nil {
			return nil, err
		}
		at := l.clock.Now()
		l.cache.Store(cfg, at)
		return snapshot{cfg, at}, nil
	})

	select {
	case <-ctx.Done():
		return nil, time.Time{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, time.Time{}, res.Err
		}
		s := res.Val.(snapshot)
		return s.config, s.at, nil
	}
}

type snapshot struct {
	config *traefik.DynamicConfig
	at     time.Time
}
