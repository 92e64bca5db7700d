package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/provider"
)

// fileConfig is the YAML configuration file. Every field is optional; unset
// fields keep the value from lower precedence sources.
type fileConfig struct {
	SocketPath            *string    `yaml:"socket_path"`
	ListenAddr            *string    `yaml:"listen_addr"`
	ServerPort            *int       `yaml:"server_port"`
	UpdateIntervalSeconds *int       `yaml:"update_interval_seconds"`
	RequestTimeoutSeconds *int       `yaml:"request_timeout_seconds"`
	Log                   fileLog    `yaml:"log"`
	Policy                filePolicy `yaml:"policy"`
}

type fileLog struct {
	Level  *string `yaml:"level"`
	Format *string `yaml:"format"`
}

type filePolicy struct {
	DefaultPort            *uint16                `yaml:"default_port"`
	DefaultProtocol        *provider.Protocol     `yaml:"default_protocol"`
	DefaultScheme          *string                `yaml:"default_scheme"`
	ExcludeExitNodes       *bool                  `yaml:"exclude_exit_nodes"`
	ExcludeExpired         *bool                  `yaml:"exclude_expired"`
	ExtractProtocolFromTag *bool                  `yaml:"extract_protocol_from_tag"`
	IncludeTags            []string               `yaml:"include_tags"`
	ExcludeHostnames       []string               `yaml:"exclude_hostnames"`
	IncludeOS              []string               `yaml:"include_os"`
	MaxInactiveSeconds     *int                   `yaml:"max_inactive_seconds"`
	HealthCheckPath        *string                `yaml:"health_check_path"`
	TagServiceMapping      map[string]fileService `yaml:"tag_service_mapping"`
	ServiceDomainMapping   map[string]string      `yaml:"service_domain_mapping"`
}

type fileService struct {
	Port     uint16            `yaml:"port"`
	Protocol provider.Protocol `yaml:"protocol"`
	Scheme   string            `yaml:"scheme"`
}

// loadFile reads the YAML file at path into cfg.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	setIf(&cfg.Descriptor, fc.SocketPath)
	setIf(&cfg.ListenAddr, fc.ListenAddr)
	if fc.ServerPort != nil {
		cfg.ListenAddr = fmt.Sprintf(":%d", *fc.ServerPort)
	}
	if fc.UpdateIntervalSeconds != nil {
		cfg.RefreshInterval = time.Duration(*fc.UpdateIntervalSeconds) * time.Second
	}
	if fc.RequestTimeoutSeconds != nil {
		cfg.RequestTimeout = time.Duration(*fc.RequestTimeoutSeconds) * time.Second
	}
	setIf(&cfg.Log.Level, fc.Log.Level)
	setIf(&cfg.Log.Format, fc.Log.Format)

	p := &cfg.Policy
	fp := fc.Policy
	setIf(&p.DefaultPort, fp.DefaultPort)
	setIf(&p.DefaultProtocol, fp.DefaultProtocol)
	setIf(&p.DefaultScheme, fp.DefaultScheme)
	setIf(&p.ExcludeExitNodes, fp.ExcludeExitNodes)
	setIf(&p.ExcludeExpired, fp.ExcludeExpired)
	setIf(&p.ExtractProtocolFromTag, fp.ExtractProtocolFromTag)
	setIf(&p.HealthCheckPath, fp.HealthCheckPath)
	if fp.IncludeTags != nil {
		p.IncludeTags = fp.IncludeTags
	}
	if fp.ExcludeHostnames != nil {
		p.ExcludeHostnames = fp.ExcludeHostnames
	}
	if fp.IncludeOS != nil {
		p.IncludeOS = fp.IncludeOS
	}
	if fp.MaxInactiveSeconds != nil {
		p.MaxInactive = time.Duration(*fp.MaxInactiveSeconds) * time.Second
	}
	if len(fp.TagServiceMapping) > 0 {
		p.TagServices = make(map[string]provider.Service, len(fp.TagServiceMapping))
		for tag, svc := range fp.TagServiceMapping {
			scheme := svc.Scheme
			if scheme == "" {
				scheme = svc.Protocol.DefaultScheme()
			}
			p.TagServices[tag] = provider.Service{Name: tag, Port: svc.Port, Protocol: svc.Protocol, Scheme: scheme}
		}
	}
	if len(fp.ServiceDomainMapping) > 0 {
		p.ServiceDomains = fp.ServiceDomainMapping
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
