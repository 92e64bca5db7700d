// Package config assembles the daemon configuration from built-in defaults,
// an optional YAML file, an optional dotenv file and the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/provider"
)

const (
	DefaultListenAddr      = ":8080"
	DefaultRefreshInterval = 30 * time.Second
	DefaultRequestTimeout  = 10 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
)

var (
	// ErrEmptyListenAddr is returned when no listen address is configured.
	ErrEmptyListenAddr = errors.New("listen address cannot be empty")
	// ErrInvalidRefreshInterval is returned for a non-positive refresh interval.
	ErrInvalidRefreshInterval = errors.New("refresh interval must be positive")
	// ErrInvalidRequestTimeout is returned for a non-positive request timeout.
	ErrInvalidRequestTimeout = errors.New("request timeout must be positive")
	// ErrInvalidLogFormat is returned for a log format other than json or console.
	ErrInvalidLogFormat = errors.New("log format must be json or console")
)

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level  string
	Format string
}

// Config is the complete daemon configuration.
type Config struct {
	// Descriptor selects the LocalAPI transport. Empty means discover the
	// platform default.
	Descriptor string

	ListenAddr      string
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
	Log             LogConfig
	Policy          provider.Policy
}

// Default returns the configuration used when no source sets anything.
func Default() *Config {
	cfg := &Config{Policy: provider.DefaultPolicy()}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills unset fields with default values. Policy toggles cannot
// be told apart from explicit false and are left alone.
func (c *Config) SetDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Policy.DefaultPort == 0 {
		c.Policy.DefaultPort = provider.DefaultPort
	}
	if c.Policy.DefaultScheme == "" {
		c.Policy.DefaultScheme = c.Policy.DefaultProtocol.DefaultScheme()
	}
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var err error
	if c.ListenAddr == "" {
		err = multierr.Append(err, ErrEmptyListenAddr)
	}
	if c.RefreshInterval <= 0 {
		err = multierr.Append(err, ErrInvalidRefreshInterval)
	}
	if c.RequestTimeout <= 0 {
		err = multierr.Append(err, ErrInvalidRequestTimeout)
	}
	if _, lerr := zapcore.ParseLevel(c.Log.Level); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("invalid log level %q: %w", c.Log.Level, lerr))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		err = multierr.Append(err, ErrInvalidLogFormat)
	}
	if perr := c.Policy.Validate(); perr != nil {
		err = multierr.Append(err, fmt.Errorf("invalid policy: %w", perr))
	}
	return err
}

// LogFields describes the effective configuration for the startup log.
// The descriptor is left out since it may carry a LocalAPI token.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("listen", c.ListenAddr),
		zap.Duration("refresh_interval", c.RefreshInterval),
		zap.Duration("request_timeout", c.RequestTimeout),
		zap.Uint16("default_port", c.Policy.DefaultPort),
		zap.Stringer("default_protocol", c.Policy.DefaultProtocol),
		zap.String("default_scheme", c.Policy.DefaultScheme),
		zap.Bool("exclude_exit_nodes", c.Policy.ExcludeExitNodes),
		zap.Bool("exclude_expired", c.Policy.ExcludeExpired),
		zap.Bool("extract_protocol_from_tag", c.Policy.ExtractProtocolFromTag),
		zap.Strings("include_tags", c.Policy.IncludeTags),
		zap.Strings("exclude_hostnames", c.Policy.ExcludeHostnames),
		zap.Strings("include_os", c.Policy.IncludeOS),
		zap.Duration("max_inactive", c.Policy.MaxInactive),
		zap.String("health_check_path", c.Policy.HealthCheckPath),
		zap.Int("tag_services", len(c.Policy.TagServices)),
		zap.Any("service_domains", c.Policy.ServiceDomains),
	}
}
