package provider

import (
	"fmt"
	"strings"
)

// Protocol is the Traefik section a service is routed through.
type Protocol int

const (
	ProtocolHTTP Protocol = iota
	ProtocolTCP
	ProtocolUDP
)

// DefaultServiceName names the synthetic service emitted for untagged peers.
const DefaultServiceName = "default"

// ParseProtocol maps a protocol string to a Protocol. Matching is case
// insensitive; "https" and anything unrecognised map to ProtocolHTTP.
func ParseProtocol(s string) Protocol {
	switch strings.ToLower(s) {
	case "tcp":
		return ProtocolTCP
	case "udp":
		return ProtocolUDP
	default:
		return ProtocolHTTP
	}
}

func (p Protocol) String() string {
	switch p {
	case ProtocolTCP:
		return "tcp"
	case ProtocolUDP:
		return "udp"
	default:
		return "http"
	}
}

// DefaultScheme is the scheme used for p when none is given explicitly.
func (p Protocol) DefaultScheme() string {
	return p.String()
}

// MarshalText implements encoding.TextMarshaler.
func (p Protocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It is as lenient as
// ParseProtocol.
func (p *Protocol) UnmarshalText(text []byte) error {
	*p = ParseProtocol(string(text))
	return nil
}

// Service is one logical service exposed by a peer.
type Service struct {
	Name     string
	Port     uint16   // 0 means the policy default port
	Protocol Protocol
	Scheme   string
}

// PortOr returns the service port, or def when none is set.
func (s Service) PortOr(def uint16) uint16 {
	if s.Port == 0 {
		return def
	}
	return s.Port
}

func (s Service) String() string {
	return fmt.Sprintf("%s:%d/%s (%s)", s.Name, s.Port, s.Protocol, s.Scheme)
}
