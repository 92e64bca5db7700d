package provider

import (
	"strings"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/tailscale"
)

// ExtractServices returns the services peer exposes. Tags are parsed with
// ParseTag and explicit tag mappings are appended after them; both are
// subject to the include-tag list. An untagged peer exposes a single
// "default" service unless an include-tag list is configured.
//
// The result may contain duplicates. Their generated names collide and the
// later one wins during synthesis.
func ExtractServices(peer *tailscale.PeerStatus, policy *Policy) []Service {
	var services []Service

	if len(peer.Tags) > 0 {
		for _, tag := range peer.Tags {
			svc, ok := ParseTag(tag, policy)
			if !ok || !policy.admits(svc.Name) {
				continue
			}
			services = append(services, svc)
		}
	} else if len(policy.IncludeTags) == 0 {
		services = append(services, policy.defaultService(DefaultServiceName))
	}

	if len(policy.TagServices) > 0 {
		for _, tag := range peer.Tags {
			svc, ok := policy.TagServices[strings.TrimPrefix(tag, tagPrefix)]
			if !ok || !policy.admits(svc.Name) {
				continue
			}
			services = append(services, svc)
		}
	}

	return services
}
