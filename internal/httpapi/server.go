// Package httpapi serves the generated Traefik configuration, the live
// tailnet status and the provider's metrics over HTTP.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/metrics"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/tailscale"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/traefik"
)

// ConfigSource returns the current dynamic configuration and the time it
// was generated.
type ConfigSource interface {
	Current(ctx context.Context) (*traefik.DynamicConfig, time.Time, error)
}

// Server represents the HTTP API server
type Server struct {
	configs    ConfigSource
	status     tailscale.StatusSource
	metrics    *metrics.Metrics
	logger     *zap.Logger
	middleware *Middleware
	server     *http.Server
}

// Config holds server configuration
type Config struct {
	ListenAddr string
}

// NewServer creates a new HTTP API server. m may be nil, in which case
// /metrics answers 404.
func NewServer(config Config, configs ConfigSource, status tailscale.StatusSource, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	server := &Server{
		configs:    configs,
		status:     status,
		metrics:    m,
		logger:     logger,
		middleware: NewMiddleware(logger, m),
	}

	server.server = &http.Server{
		Addr:           config.ListenAddr,
		Handler:        server.setupRoutes(),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
	return server
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured address and serves until Stop is called.
// It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	withMiddleware := func(handler http.HandlerFunc) http.Handler {
		return s.middleware.Recovery(
			s.middleware.Logging(
				s.middleware.CORS(
					s.middleware.GetOnly(
						s.middleware.ContentType(handler)))))
	}

	mux.Handle("/health", withMiddleware(s.handleHealth))
	mux.Handle("/config", withMiddleware(s.handleConfig))
	mux.Handle("/status", withMiddleware(s.handleStatus))

	metricsHandler := s.metrics.Handler()
	mux.Handle("/metrics", s.middleware.Recovery(
		s.middleware.Logging(
			s.middleware.GetOnly(metricsHandler.ServeHTTP))))

	mux.Handle("/", withMiddleware(s.handleRoot))

	return mux
}

// handleRoot answers like /health for the bare root and 404 elsewhere.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, "Not found", http.StatusNotFound)
		return
	}
	s.handleHealth(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "OK", Service: ServiceName}, http.StatusOK)
}

// handleConfig serves the cached dynamic configuration, generating one on
// demand when nothing has been cached yet.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	format, err := traefik.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	cfg, generatedAt, err := s.configs.Current(r.Context())
	if err != nil {
		s.logger.Warn("configuration unavailable", zap.Error(err))
		writeError(w, "Failed to generate configuration: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := traefik.Encode(&buf, cfg, format); err != nil {
		s.logger.Error("failed to encode configuration", zap.Error(err))
		writeError(w, "Failed to encode configuration", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if !generatedAt.IsZero() {
		w.Header().Set("Last-Modified", generatedAt.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleStatus passes the live LocalAPI status document through.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.status.Status(r.Context())
	if err != nil {
		s.logger.Warn("status unavailable", zap.Error(err))
		writeError(w, "Failed to fetch Tailscale status: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, status, http.StatusOK)
}

// writeError writes an error response as JSON
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(append(body, '\n'))
}
