package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/tailscale"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newPeer(hostname string, tags ...string) *tailscale.PeerStatus {
	return &tailscale.PeerStatus{
		HostName:     hostname,
		OS:           "linux",
		Online:       true,
		TailscaleIPs: []string{"100.64.0.5", "fd7a:115c:a1e0::5"},
		Tags:         tags,
		LastWrite:    testNow.Add(-time.Minute),
	}
}

// permissivePolicy disables every optional filter.
func permissivePolicy() Policy {
	policy := DefaultPolicy()
	policy.ExcludeExitNodes = false
	policy.ExcludeExpired = false
	return policy
}

func TestShouldInclude(t *testing.T) {
	t.Run("online_peer_included", func(t *testing.T) {
		policy := DefaultPolicy()
		assert.True(t, ShouldInclude(newPeer("box1"), &policy, testNow))
	})

	t.Run("offline_always_excluded", func(t *testing.T) {
		peer := newPeer("box1", "tag:web")
		peer.Online = false

		for _, policy := range []Policy{DefaultPolicy(), permissivePolicy()} {
			policy := policy
			assert.False(t, ShouldInclude(peer, &policy, testNow))
			assert.Equal(t, reasonOffline, exclusionReason(peer, &policy, testNow))
		}
	})

	t.Run("exit_node", func(t *testing.T) {
		peer := newPeer("exit1")
		peer.ExitNode = true

		policy := DefaultPolicy()
		assert.False(t, ShouldInclude(peer, &policy, testNow))

		policy.ExcludeExitNodes = false
		assert.True(t, ShouldInclude(peer, &policy, testNow))
	})

	t.Run("include_tags_substring_match", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.IncludeTags = []string{"web"}

		assert.True(t, ShouldInclude(newPeer("box1", "tag:web-3000"), &policy, testNow))
		assert.True(t, ShouldInclude(newPeer("box1", "tag:db", "tag:webapp"), &policy, testNow))
		assert.False(t, ShouldInclude(newPeer("box1", "tag:db-5432-tcp"), &policy, testNow))
		assert.Equal(t, reasonNoTagMatch, exclusionReason(newPeer("box1"), &policy, testNow), "untagged peer")
	})

	t.Run("include_tags_match_after_prefix_strip", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.IncludeTags = []string{"tag"}

		assert.False(t, ShouldInclude(newPeer("box1", "tag:web"), &policy, testNow))
		assert.True(t, ShouldInclude(newPeer("box1", "tag:tagged"), &policy, testNow))
	})

	t.Run("exclude_hostnames", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.ExcludeHostnames = []string{"nas", "printer"}

		assert.False(t, ShouldInclude(newPeer("nas"), &policy, testNow))
		assert.True(t, ShouldInclude(newPeer("nas2"), &policy, testNow))
	})

	t.Run("max_inactive", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.MaxInactive = time.Minute

		peer := newPeer("box1")
		peer.LastWrite = testNow.Add(-time.Minute)
		assert.True(t, ShouldInclude(peer, &policy, testNow), "exactly at the limit")

		peer.LastWrite = testNow.Add(-time.Minute - 900*time.Millisecond)
		assert.True(t, ShouldInclude(peer, &policy, testNow), "fractional seconds are truncated")

		peer.LastWrite = testNow.Add(-61 * time.Second)
		assert.Equal(t, reasonInactive, exclusionReason(peer, &policy, testNow))

		peer.LastWrite = testNow.Add(time.Hour)
		assert.True(t, ShouldInclude(peer, &policy, testNow), "clock skew")
	})

	t.Run("never_active", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.MaxInactive = 24 * time.Hour

		peer := newPeer("box1")
		for _, lastWrite := range []time.Time{{}, time.Unix(0, 0)} {
			peer.LastWrite = lastWrite
			assert.Equal(t, reasonNeverActive, exclusionReason(peer, &policy, testNow))
		}

		policy.MaxInactive = 0
		assert.True(t, ShouldInclude(peer, &policy, testNow), "filter disabled")
	})

	t.Run("include_os", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.IncludeOS = []string{"linux", "freebsd"}

		assert.True(t, ShouldInclude(newPeer("box1"), &policy, testNow))

		peer := newPeer("phone")
		peer.OS = "iOS"
		assert.Equal(t, reasonOS, exclusionReason(peer, &policy, testNow))
	})

	t.Run("expired", func(t *testing.T) {
		peer := newPeer("old")
		peer.Expired = true

		policy := DefaultPolicy()
		assert.Equal(t, reasonExpired, exclusionReason(peer, &policy, testNow))

		policy.ExcludeExpired = false
		assert.True(t, ShouldInclude(peer, &policy, testNow))
	})

	t.Run("first_failing_rule_wins", func(t *testing.T) {
		peer := newPeer("nas")
		peer.ExitNode = true
		peer.Expired = true

		policy := DefaultPolicy()
		policy.ExcludeHostnames = []string{"nas"}
		assert.Equal(t, reasonExitNode, exclusionReason(peer, &policy, testNow))

		policy.ExcludeExitNodes = false
		assert.Equal(t, reasonHostname, exclusionReason(peer, &policy, testNow))
	})
}

func TestShouldInclude_ExcludeExitNodesShrinksSet(t *testing.T) {
	peers := []*tailscale.PeerStatus{newPeer("a"), newPeer("b"), newPeer("c"), newPeer("d")}
	peers[1].ExitNode = true
	peers[2].ExitNode = true
	peers[2].Online = false

	with := DefaultPolicy()
	without := DefaultPolicy()
	without.ExcludeExitNodes = false

	for _, peer := range peers {
		if ShouldInclude(peer, &with, testNow) {
			assert.True(t, ShouldInclude(peer, &without, testNow), peer.HostName)
		}
	}
	assert.False(t, ShouldInclude(peers[1], &with, testNow))
	assert.True(t, ShouldInclude(peers[1], &without, testNow))
}
