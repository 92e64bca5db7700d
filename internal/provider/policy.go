package provider

import (
	"errors"
	"slices"
	"time"

	"go.uber.org/multierr"
)

const (
	// DefaultPort is the backend port used when a tag names none.
	DefaultPort uint16 = 80
	// DefaultHealthCheckPath is probed on every HTTP backend unless disabled.
	DefaultHealthCheckPath = "/health"
)

var (
	// ErrInvalidDefaultPort is returned when the default port is zero.
	ErrInvalidDefaultPort = errors.New("default port must be between 1 and 65535")
	// ErrEmptyDefaultScheme is returned when the default scheme is empty.
	ErrEmptyDefaultScheme = errors.New("default scheme cannot be empty")
	// ErrNegativeMaxInactive is returned for a negative inactivity limit.
	ErrNegativeMaxInactive = errors.New("max inactive duration cannot be negative")
	// ErrInvalidTagService is returned for a tag mapping entry without a port.
	ErrInvalidTagService = errors.New("tag service mapping entry needs a name and a port")
)

// Policy decides which peers are routed and how their services are derived.
// It is built once at startup and only read afterwards.
type Policy struct {
	DefaultPort            uint16
	DefaultProtocol        Protocol
	DefaultScheme          string
	ExcludeExitNodes       bool
	ExcludeExpired         bool
	ExtractProtocolFromTag bool

	// Empty lists disable the corresponding filter.
	IncludeTags      []string
	ExcludeHostnames []string
	IncludeOS        []string

	// MaxInactive excludes peers idle for longer. Zero disables the filter.
	MaxInactive time.Duration

	// HealthCheckPath is attached to every HTTP service. Empty disables
	// health checks.
	HealthCheckPath string

	// TagServices maps a tag (without the "tag:" prefix) to an explicit
	// service.
	TagServices map[string]Service

	// ServiceDomains maps a service name to the host its router matches.
	ServiceDomains map[string]string
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		DefaultPort:            DefaultPort,
		DefaultProtocol:        ProtocolHTTP,
		DefaultScheme:          ProtocolHTTP.DefaultScheme(),
		ExcludeExitNodes:       true,
		ExcludeExpired:         true,
		ExtractProtocolFromTag: true,
		HealthCheckPath:        DefaultHealthCheckPath,
	}
}

// Validate reports every problem with the policy.
func (p *Policy) Validate() error {
	var err error
	if p.DefaultPort == 0 {
		err = multierr.Append(err, ErrInvalidDefaultPort)
	}
	if p.DefaultScheme == "" {
		err = multierr.Append(err, ErrEmptyDefaultScheme)
	}
	if p.MaxInactive < 0 {
		err = multierr.Append(err, ErrNegativeMaxInactive)
	}
	for _, svc := range p.TagServices {
		if svc.Name == "" || svc.Port == 0 {
			err = multierr.Append(err, ErrInvalidTagService)
			break
		}
	}
	return err
}

// defaultService builds a service for name from the policy defaults alone.
func (p *Policy) defaultService(name string) Service {
	return Service{
		Name:     name,
		Port:     p.DefaultPort,
		Protocol: p.DefaultProtocol,
		Scheme:   p.DefaultScheme,
	}
}

// admits reports whether a service named name passes the include-tag list.
func (p *Policy) admits(name string) bool {
	return len(p.IncludeTags) == 0 || slices.Contains(p.IncludeTags, name)
}
