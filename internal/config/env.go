package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/provider"
)

// Environment variable names.
const (
	EnvSocketPath             = "TAILSCALE_SOCKET_PATH"
	EnvDefaultPort            = "DEFAULT_PORT"
	EnvDefaultProtocol        = "DEFAULT_PROTOCOL"
	EnvDefaultScheme          = "DEFAULT_SCHEME"
	EnvExcludeExitNodes       = "EXCLUDE_EXIT_NODES"
	EnvExcludeExpired         = "EXCLUDE_EXPIRED"
	EnvExtractProtocolFromTag = "EXTRACT_PROTOCOL_FROM_TAG"
	EnvHealthCheckPath        = "HEALTH_CHECK_PATH"
	EnvUpdateIntervalSeconds  = "UPDATE_INTERVAL_SECONDS"
	EnvServerPort             = "SERVER_PORT"
	EnvIncludeTags            = "INCLUDE_TAGS"
	EnvExcludeHostnames       = "EXCLUDE_HOSTNAMES"
	EnvIncludeOS              = "INCLUDE_OS"
	EnvMaxInactiveSeconds     = "MAX_INACTIVE_SECONDS"
	EnvTagServiceMapping      = "TAG_SERVICE_MAPPING"
	EnvServiceDomainMapping   = "SERVICE_DOMAIN_MAPPING"
	EnvRequestTimeoutSeconds  = "REQUEST_TIMEOUT_SECONDS"
	EnvLogLevel               = "LOG_LEVEL"
	EnvLogFormat              = "LOG_FORMAT"
)

// LookupFunc looks up one environment variable.
type LookupFunc func(key string) (string, bool)

// Options controls where Load reads from.
type Options struct {
	// File is an optional YAML configuration file.
	File string
	// EnvFile is an optional dotenv file. A missing file is ignored.
	EnvFile string
	// Lookup reads the environment. Nil means os.LookupEnv.
	Lookup LookupFunc
}

// Load builds the configuration from defaults, the YAML file, the dotenv
// file and the environment, later sources overriding earlier ones. The
// process environment takes precedence over the dotenv file.
//
// Malformed values are all reported in one error. Load does not call
// Validate so callers can apply flag overrides first.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := loadFile(opts.File, cfg); err != nil {
			return nil, err
		}
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if opts.EnvFile != "" {
		dotenv, err := godotenv.Read(opts.EnvFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read env file %s: %w", opts.EnvFile, err)
		default:
			lookup = withFallback(lookup, dotenv)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	return cfg, nil
}

// withFallback consults vars for keys lookup does not know.
func withFallback(lookup LookupFunc, vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	var errs error
	p := &cfg.Policy

	if v, ok := lookup(EnvSocketPath); ok {
		cfg.Descriptor = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvDefaultPort); ok {
		port, err := parsePortValue(EnvDefaultPort, v)
		errs = multierr.Append(errs, err)
		if err == nil {
			p.DefaultPort = port
		}
	}
	if v, ok := lookup(EnvDefaultProtocol); ok {
		p.DefaultProtocol = provider.ParseProtocol(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvDefaultScheme); ok {
		p.DefaultScheme = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvExcludeExitNodes); ok {
		p.ExcludeExitNodes = parseBool(v)
	}
	if v, ok := lookup(EnvExcludeExpired); ok {
		p.ExcludeExpired = parseBool(v)
	}
	if v, ok := lookup(EnvExtractProtocolFromTag); ok {
		p.ExtractProtocolFromTag = parseBool(v)
	}
	if v, ok := lookup(EnvHealthCheckPath); ok {
		p.HealthCheckPath = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvUpdateIntervalSeconds); ok {
		d, err := parseSeconds(EnvUpdateIntervalSeconds, v)
		errs = multierr.Append(errs, err)
		if err == nil {
			cfg.RefreshInterval = d
		}
	}
	if v, ok := lookup(EnvServerPort); ok {
		port, err := parsePortValue(EnvServerPort, v)
		errs = multierr.Append(errs, err)
		if err == nil {
			cfg.ListenAddr = fmt.Sprintf(":%d", port)
		}
	}
	if v, ok := lookup(EnvIncludeTags); ok {
		p.IncludeTags = splitList(v)
	}
	if v, ok := lookup(EnvExcludeHostnames); ok {
		p.ExcludeHostnames = splitList(v)
	}
	if v, ok := lookup(EnvIncludeOS); ok {
		p.IncludeOS = splitList(v)
	}
	if v, ok := lookup(EnvMaxInactiveSeconds); ok {
		d, err := parseSeconds(EnvMaxInactiveSeconds, v)
		errs = multierr.Append(errs, err)
		if err == nil {
			p.MaxInactive = d
		}
	}
	if v, ok := lookup(EnvTagServiceMapping); ok {
		p.TagServices = ParseServiceMapping(v)
	}
	if v, ok := lookup(EnvServiceDomainMapping); ok {
		p.ServiceDomains = ParseDomainMapping(v)
	}
	if v, ok := lookup(EnvRequestTimeoutSeconds); ok {
		d, err := parseSeconds(EnvRequestTimeoutSeconds, v)
		errs = multierr.Append(errs, err)
		if err == nil {
			cfg.RequestTimeout = d
		}
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvLogFormat); ok {
		cfg.Log.Format = strings.ToLower(strings.TrimSpace(v))
	}

	return errs
}

// parseBool treats anything except a case-insensitive "false" as true.
func parseBool(v string) bool {
	return !strings.EqualFold(strings.TrimSpace(v), "false")
}

func parsePortValue(key, v string) (uint16, error) {
	port, err := strconv.ParseUint(strings.TrimSpace(v), 10, 16)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("%s: invalid port %q", key, v)
	}
	return uint16(port), nil
}

func parseSeconds(key, v string) (time.Duration, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: invalid number of seconds %q", key, v)
	}
	return time.Duration(n) * time.Second, nil
}
