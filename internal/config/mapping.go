package config

import (
	"strconv"
	"strings"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/provider"
)

// ParseServiceMapping parses "tag:port[:protocol],..." into explicit tag
// services. The protocol defaults to HTTP and the scheme follows the
// protocol. Entries without a valid port are dropped. The result is nil when
// no entry survives.
func ParseServiceMapping(s string) map[string]provider.Service {
	mapping := make(map[string]provider.Service)
	for _, entry := range strings.Split(s, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) < 2 {
			continue
		}

		tag := strings.TrimSpace(parts[0])
		port, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 16)
		if tag == "" || err != nil || port == 0 {
			continue
		}

		protocol := provider.ProtocolHTTP
		if len(parts) >= 3 {
			protocol = provider.ParseProtocol(strings.TrimSpace(parts[2]))
		}

		mapping[tag] = provider.Service{
			Name:     tag,
			Port:     uint16(port),
			Protocol: protocol,
			Scheme:   protocol.DefaultScheme(),
		}
	}

	if len(mapping) == 0 {
		return nil
	}
	return mapping
}

// ParseDomainMapping parses "service:domain,..." into a service to domain
// table. Entries that do not split into exactly two parts are dropped. The
// result is nil when no entry survives.
func ParseDomainMapping(s string) map[string]string {
	mapping := make(map[string]string)
	for _, entry := range strings.Split(s, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 2 {
			continue
		}
		mapping[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	if len(mapping) == 0 {
		return nil
	}
	return mapping
}

// splitList splits a comma separated list, trimming items and dropping
// empty ones.
func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
