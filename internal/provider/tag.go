package provider

import (
	"strconv"
	"strings"
)

// tagPrefix is prepended by tailscaled to every ACL tag.
const tagPrefix = "tag:"

// ParseTag derives a service from a peer tag of the form
// name[-port[-protocol]]. Names may contain dashes when both port and
// protocol are present ("my-api-8080-tcp" is "my-api" on 8080/tcp).
//
// ok is false when the tag carries a port segment that is not a valid port.
// With tag extraction disabled every tag yields a service built from the
// policy defaults.
func ParseTag(tag string, policy *Policy) (Service, bool) {
	clean := strings.TrimPrefix(tag, tagPrefix)
	if !policy.ExtractProtocolFromTag {
		return policy.defaultService(clean), true
	}

	parts := strings.Split(clean, "-")
	switch len(parts) {
	case 1:
		return policy.defaultService(parts[0]), true
	case 2:
		port, ok := parsePort(parts[1])
		if !ok {
			return Service{}, false
		}
		svc := policy.defaultService(parts[0])
		svc.Port = port
		return svc, true
	default:
		n := len(parts)
		port, ok := parsePort(parts[n-2])
		if !ok {
			return Service{}, false
		}
		protocol := ParseProtocol(parts[n-1])
		return Service{
			Name:     strings.Join(parts[:n-2], "-"),
			Port:     port,
			Protocol: protocol,
			Scheme:   schemeFor(protocol, parts[n-1]),
		}, true
	}
}

// parsePort accepts decimal ports in 1..65535.
func parsePort(s string) (uint16, bool) {
	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil || port == 0 {
		return 0, false
	}
	return uint16(port), true
}

func schemeFor(protocol Protocol, raw string) string {
	if protocol == ProtocolHTTP && strings.EqualFold(raw, "https") {
		return "https"
	}
	return protocol.DefaultScheme()
}
