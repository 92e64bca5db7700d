// Package metrics exposes Prometheus metrics for refresh cycles and the
// HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/traefik"
)

const namespace = "tailscale_provider"

// Refresh results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds every collector the provider exports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	lastSuccess     prometheus.Gauge
	peers           *prometheus.GaugeVec
	routers         *prometheus.GaugeVec
	onDemandTotal   prometheus.Counter
	httpRequests    *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Configuration refresh cycles by result.",
		}, []string{"result"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of configuration refresh cycles.",
			Buckets:   prometheus.DefBuckets,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
		peers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peers",
			Help:      "Peers seen in the last status document and peers included by policy.",
		}, []string{"state"}),
		routers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "routers",
			Help:      "Routers in the cached configuration by protocol.",
		}, []string{"protocol"}),
		onDemandTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "on_demand_total",
			Help:      "Configuration generations triggered by a read of an empty cache.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by path and status code.",
		}, []string{"path", "code"}),
	}

	m.registry.MustRegister(
		m.refreshTotal,
		m.refreshDuration,
		m.lastSuccess,
		m.peers,
		m.routers,
		m.onDemandTotal,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRefresh records one refresh cycle. cfg, seen and included are only
// used on success.
func (m *Metrics) ObserveRefresh(err error, duration time.Duration, at time.Time, cfg *traefik.DynamicConfig, seen, included int) {
	if m == nil {
		return
	}

	m.refreshDuration.Observe(duration.Seconds())
	if err != nil {
		m.refreshTotal.WithLabelValues(ResultFailure).Inc()
		return
	}

	m.refreshTotal.WithLabelValues(ResultSuccess).Inc()
	m.lastSuccess.Set(float64(at.Unix()))
	m.peers.WithLabelValues("seen").Set(float64(seen))
	m.peers.WithLabelValues("included").Set(float64(included))
	for protocol, counts := range cfg.Counts() {
		m.routers.WithLabelValues(protocol).Set(float64(counts.Routers))
	}
}

// IncOnDemand records a generation triggered by a reader.
func (m *Metrics) IncOnDemand() {
	if m == nil {
		return
	}
	m.onDemandTotal.Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(path string, status int) {
	if m == nil {
		return
	}
	if status == 0 {
		status = http.StatusOK
	}
	m.httpRequests.WithLabelValues(path, strconv.Itoa(status)).Inc()
}
