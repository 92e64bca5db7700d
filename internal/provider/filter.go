package provider

import (
	"slices"
	"strings"
	"time"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/tailscale"
)

// Exclusion reasons, reported in debug logs.
const (
	reasonOffline     = "offline"
	reasonExitNode    = "exit node"
	reasonNoTagMatch  = "no matching tag"
	reasonHostname    = "hostname excluded"
	reasonNeverActive = "never active"
	reasonInactive    = "inactive"
	reasonOS          = "os not included"
	reasonExpired     = "key expired"
)

// ShouldInclude reports whether peer is routed under policy at time now.
func ShouldInclude(peer *tailscale.PeerStatus, policy *Policy, now time.Time) bool {
	return exclusionReason(peer, policy, now) == ""
}

// exclusionReason returns why peer is excluded, or "" when it is included.
// Rules are checked in a fixed order and the first failing one wins.
func exclusionReason(peer *tailscale.PeerStatus, policy *Policy, now time.Time) string {
	if !peer.Online {
		return reasonOffline
	}

	if policy.ExcludeExitNodes && peer.ExitNode {
		return reasonExitNode
	}

	if len(policy.IncludeTags) > 0 && !hasIncludedTag(peer.Tags, policy.IncludeTags) {
		return reasonNoTagMatch
	}

	if len(policy.ExcludeHostnames) > 0 && slices.Contains(policy.ExcludeHostnames, peer.HostName) {
		return reasonHostname
	}

	if policy.MaxInactive > 0 {
		if peer.NeverActive() {
			return reasonNeverActive
		}
		// Compared in whole seconds.
		if now.Sub(peer.LastWrite).Truncate(time.Second) > policy.MaxInactive {
			return reasonInactive
		}
	}

	if len(policy.IncludeOS) > 0 && !slices.Contains(policy.IncludeOS, peer.OS) {
		return reasonOS
	}

	if policy.ExcludeExpired && peer.Expired {
		return reasonExpired
	}

	return ""
}

// hasIncludedTag reports whether any wanted tag is a substring of any peer
// tag. A peer without tags never matches.
func hasIncludedTag(peerTags, wanted []string) bool {
	for _, want := range wanted {
		for _, tag := range peerTags {
			if strings.Contains(strings.TrimPrefix(tag, tagPrefix), want) {
				return true
			}
		}
	}
	return false
}
