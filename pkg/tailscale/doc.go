// Package tailscale provides the types of the Tailscale LocalAPI status
// document and the interface for anything that can produce one.
//
// The types mirror the JSON emitted by tailscaled at /localapi/v0/status:
//   - Status: daemon metadata plus the peer map keyed by node public key
//   - PeerStatus: one mesh member (hostname, mesh IPs, tags, flags, timestamps)
//   - TailnetStatus, ExitNodeStatus, UserProfile, ClientVersion, Location
//
// Only the fields consumed by the provider are load bearing. The remaining
// fields are decoded so that GET /status can relay the document unchanged.
//
// Example usage:
//
//	status, err := source.Status(ctx)
//	if err != nil {
//		return err
//	}
//	for _, peer := range status.SortedPeers() {
//		fmt.Println(peer.HostName, peer.TailscaleIPs)
//	}
package tailscale
