package refresh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/metrics"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/provider"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/traefik"
)

type result struct {
	cfg *traefik.DynamicConfig
	err error
}

// fakeGenerator replays results in order, repeating the last one, and
// signals every call on called.
type fakeGenerator struct {
	mu      sync.Mutex
	results []result
	calls   atomic.Int32
	called  chan struct{}
	release chan struct{}
}

func newFakeGenerator(results ...result) *fakeGenerator {
	return &fakeGenerator{results: results, called: make(chan struct{}, 100)}
}

func (f *fakeGenerator) GenerateConfig(ctx context.Context) (*traefik.DynamicConfig, provider.Stats, error) {
	n := int(f.calls.Add(1))
	f.called <- struct{}{}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, provider.Stats{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.results[len(f.results)-1]
	if n <= len(f.results) {
		r = f.results[n-1]
	}
	return r.cfg, provider.Stats{PeersSeen: 2, PeersIncluded: 1}, r.err
}

func waitCall(t *testing.T, g *fakeGenerator) {
	t.Helper()
	select {
	case <-g.called:
	case <-time.After(2 * time.Second):
		t.Fatal("generator was not called")
	}
}

func configWithRouter(name string) *traefik.DynamicConfig {
	return &traefik.DynamicConfig{HTTP: &traefik.HTTPConfig{
		Routers:  map[string]traefik.Router{name: {Rule: "HostRegexp(`.*`)", Service: name}},
		Services: map[string]traefik.Service{},
	}}
}

func TestNewLoop(t *testing.T) {
	_, err := NewLoop(nil, nil, Options{Interval: time.Second})
	assert.Error(t, err)

	_, err = NewLoop(newFakeGenerator(), nil, Options{})
	assert.ErrorIs(t, err, ErrInvalidInterval)

	loop, err := NewLoop(newFakeGenerator(), nil, Options{Interval: time.Second})
	require.NoError(t, err)
	assert.NotNil(t, loop.Cache())
}

func TestLoop_Run(t *testing.T) {
	first := configWithRouter("first")
	second := configWithRouter("second")
	gen := newFakeGenerator(result{cfg: first}, result{cfg: second})

	mock := clock.NewMock()
	m := metrics.New()
	loop, err := NewLoop(gen, NewCache(), Options{Interval: 30 * time.Second, Clock: mock, Metrics: m})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	waitCall(t, gen)
	require.Eventually(t, func() bool {
		cfg, _ := loop.Cache().Load()
		return cfg == first
	}, 2*time.Second, 5*time.Millisecond, "first cycle runs immediately")

	mock.Add(30 * time.Second)
	waitCall(t, gen)
	require.Eventually(t, func() bool {
		cfg, _ := loop.Cache().Load()
		return cfg == second
	}, 2*time.Second, 5*time.Millisecond)

	_, at := loop.Cache().Load()
	assert.Equal(t, mock.Now(), at)
	assertRefreshes(t, m, 2, 0)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, int32(2), gen.calls.Load())
}

func assertRefreshes(t *testing.T, m *metrics.Metrics, success, failure int) {
	t.Helper()
	expected := `
# HELP tailscale_provider_refresh_total Configuration refresh cycles by result.
# TYPE tailscale_provider_refresh_total counter
`
	if failure > 0 {
		expected += fmt.Sprintf("tailscale_provider_refresh_total{result=\"failure\"} %d\n", failure)
	}
	if success > 0 {
		expected += fmt.Sprintf("tailscale_provider_refresh_total{result=\"success\"} %d\n", success)
	}
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "tailscale_provider_refresh_total"))
}

func TestLoop_RunTwice(t *testing.T) {
	gen := newFakeGenerator(result{cfg: configWithRouter("a")})
	loop, err := NewLoop(gen, nil, Options{Interval: time.Minute, Clock: clock.NewMock()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	waitCall(t, gen)

	assert.ErrorIs(t, loop.Run(ctx), ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-done)
}

func TestLoop_RefreshFailureKeepsCache(t *testing.T) {
	good := configWithRouter("good")
	gen := newFakeGenerator(result{cfg: good}, result{err: errors.New("tailscaled down")})

	mock := clock.NewMock()
	m := metrics.New()
	loop, err := NewLoop(gen, nil, Options{Interval: time.Minute, Clock: mock, Metrics: m})
	require.NoError(t, err)

	require.NoError(t, loop.Refresh(context.Background()))
	_, firstAt := loop.Cache().Load()

	mock.Add(time.Minute)
	assert.Error(t, loop.Refresh(context.Background()))

	cfg, at := loop.Cache().Load()
	assert.Same(t, good, cfg)
	assert.Equal(t, firstAt, at)
	assertRefreshes(t, m, 1, 1)
}

func TestLoop_CurrentFromCache(t *testing.T) {
	gen := newFakeGenerator(result{cfg: configWithRouter("unused")})
	cache := NewCache()
	cached := configWithRouter("cached")
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.Store(cached, at)

	loop, err := NewLoop(gen, cache, Options{Interval: time.Minute, Clock: clock.NewMock()})
	require.NoError(t, err)

	cfg, gotAt, err := loop.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, cached, cfg)
	assert.Equal(t, at, gotAt)
	assert.Equal(t, int32(0), gen.calls.Load())
}

func TestLoop_CurrentOnDemandIsShared(t *testing.T) {
	want := configWithRouter("on-demand")
	gen := newFakeGenerator(result{cfg: want})
	gen.release = make(chan struct{})

	m := metrics.New()
	loop, err := NewLoop(gen, nil, Options{Interval: time.Minute, Clock: clock.NewMock(), Metrics: m})
	require.NoError(t, err)

	const readers = 8
	var wg sync.WaitGroup
	results := make(chan *traefik.DynamicConfig, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg, _, err := loop.Current(context.Background())
			assert.NoError(t, err)
			results <- cfg
		}()
	}

	waitCall(t, gen)
	close(gen.release)
	wg.Wait()
	close(results)

	for cfg := range results {
		assert.Same(t, want, cfg)
	}
	assert.Equal(t, int32(1), gen.calls.Load())

	cfg, _ := loop.Cache().Load()
	assert.Same(t, want, cfg)

	expected := `
# HELP tailscale_provider_on_demand_total Configuration generations triggered by a read of an empty cache.
# TYPE tailscale_provider_on_demand_total counter
tailscale_provider_on_demand_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "tailscale_provider_on_demand_total"))
}

func TestLoop_CurrentFirstCallerCancelled(t *testing.T) {
	want := configWithRouter("on-demand")
	gen := newFakeGenerator(result{cfg: want})
	gen.release = make(chan struct{})

	loop, err := NewLoop(gen, nil, Options{Interval: time.Minute, Clock: clock.NewMock()})
	require.NoError(t, err)

	firstCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	firstErr := make(chan error, 1)
	go func() {
		_, _, err := loop.Current(firstCtx)
		firstErr <- err
	}()
	waitCall(t, gen)

	type current struct {
		cfg *traefik.DynamicConfig
		err error
	}
	second := make(chan current, 1)
	go func() {
		cfg, _, err := loop.Current(context.Background())
		second <- current{cfg, err}
	}()

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(gen.release)
	select {
	case got := <-second:
		require.NoError(t, got.err)
		assert.Same(t, want, got.cfg)
	case <-time.After(2 * time.Second):
		t.Fatal("waiting caller did not return")
	}

	assert.Equal(t, int32(1), gen.calls.Load())
	cfg, _ := loop.Cache().Load()
	assert.Same(t, want, cfg)
}

func TestLoop_CurrentOnDemandFailure(t *testing.T) {
	genErr := errors.New("connection refused")
	gen := newFakeGenerator(result{err: genErr}, result{cfg: configWithRouter("later")})

	loop, err := NewLoop(gen, nil, Options{Interval: time.Minute, Clock: clock.NewMock()})
	require.NoError(t, err)

	cfg, _, err := loop.Current(context.Background())
	assert.ErrorIs(t, err, genErr)
	assert.Nil(t, cfg)

	empty, _ := loop.Cache().Load()
	assert.Nil(t, empty)

	cfg, _, err = loop.Current(context.Background())
	require.NoError(t, err)
	assert.Contains(t, cfg.HTTP.Routers, "later")
	assert.Equal(t, int32(2), gen.calls.Load())
}
