package provider

import (
	"fmt"
	"net"
	"strconv"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/tailscale"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/traefik"
)

const (
	healthCheckInterval = "30s"
	healthCheckTimeout  = "5s"

	catchAllHostRule = "HostRegexp(`.*`)"
	catchAllSNIRule  = "HostSNI(`*`)"
)

// Stats summarises one synthesis pass.
type Stats struct {
	PeersSeen     int
	PeersIncluded int
	// Skipped counts (peer, service) pairs dropped for lack of a mesh IP.
	Skipped int
}

// Synthesizer turns a status document into Traefik dynamic configuration.
// It holds no mutable state and is safe for concurrent use.
type Synthesizer struct {
	policy *Policy
	clock  clock.Clock
	logger *zap.Logger
}

// NewSynthesizer creates a Synthesizer. clk supplies "now" for the
// inactivity filter; nil means the wall clock. A nil logger discards logs.
func NewSynthesizer(policy *Policy, clk clock.Clock, logger *zap.Logger) *Synthesizer {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		policy: policy,
		clock:  clk,
		logger: logger.Named("synthesizer"),
	}
}

// Build returns the configuration for status.
func (s *Synthesizer) Build(status *tailscale.Status) *traefik.DynamicConfig {
	cfg, _ := s.Synthesize(status)
	return cfg
}

// Synthesize returns the configuration for status along with pass
// statistics. Peers are visited in key order so equal input gives equal
// output.
func (s *Synthesizer) Synthesize(status *tailscale.Status) (*traefik.DynamicConfig, Stats) {
	var stats Stats
	now := s.clock.Now()
	builder := traefik.NewBuilder()

	for _, peer := range status.SortedPeers() {
		stats.PeersSeen++
		if reason := exclusionReason(peer, s.policy, now); reason != "" {
			s.logger.Debug("peer excluded",
				zap.String("host", peer.HostName),
				zap.String("reason", reason))
			continue
		}
		stats.PeersIncluded++

		for _, svc := range ExtractServices(peer, s.policy) {
			if !s.add(builder, peer, svc) {
				stats.Skipped++
			}
		}
	}

	return builder.Build(), stats
}

// add adds the router and service for one (peer, service) pair. It returns
// false when the peer has no address to route to.
func (s *Synthesizer) add(builder *traefik.Builder, peer *tailscale.PeerStatus, svc Service) bool {
	if len(peer.TailscaleIPs) == 0 {
		s.logger.Warn("peer has no Tailscale IPs, skipping service",
			zap.String("host", peer.HostName),
			zap.String("service", svc.Name))
		return false
	}

	address := net.JoinHostPort(peer.TailscaleIPs[0], strconv.Itoa(int(svc.PortOr(s.policy.DefaultPort))))
	serviceName := ServiceName(peer.HostName, svc.Name)
	routerName := RouterName(peer.HostName, svc.Name)
	domain, hasDomain := s.policy.ServiceDomains[svc.Name]

	switch svc.Protocol {
	case ProtocolTCP:
		rule := catchAllSNIRule
		if hasDomain {
			rule = fmt.Sprintf("HostSNI(`%s`)", domain)
		}
		builder.AddTCP(routerName,
			traefik.TCPRouter{Rule: rule, Service: serviceName},
			serviceName,
			traefik.TCPService{LoadBalancer: traefik.TCPLoadBalancer{
				Servers: []traefik.TCPServer{{Address: address, Weight: defaultWeight()}},
			}})
	case ProtocolUDP:
		builder.AddUDP(routerName,
			traefik.UDPRouter{Service: serviceName},
			serviceName,
			traefik.UDPService{LoadBalancer: traefik.UDPLoadBalancer{
				Servers: []traefik.UDPServer{{Address: address, Weight: defaultWeight()}},
			}})
	default:
		rule := catchAllHostRule
		if hasDomain {
			rule = fmt.Sprintf("Host(`%s`)", domain)
		}
		builder.AddHTTP(routerName,
			traefik.Router{Rule: rule, Service: serviceName},
			serviceName,
			traefik.Service{LoadBalancer: traefik.LoadBalancer{
				Servers:     []traefik.Server{{URL: svc.Scheme + "://" + address, Weight: defaultWeight()}},
				HealthCheck: s.healthCheck(),
			}})
	}

	return true
}

func (s *Synthesizer) healthCheck() *traefik.HealthCheck {
	if s.policy.HealthCheckPath == "" {
		return nil
	}
	return &traefik.HealthCheck{
		Path:     s.policy.HealthCheckPath,
		Interval: healthCheckInterval,
		Timeout:  healthCheckTimeout,
	}
}

func defaultWeight() *int {
	weight := 1
	return &weight
}
