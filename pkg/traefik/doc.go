// Package traefik provides the Traefik dynamic configuration document produced
// by the provider.
//
// The document has three independent sections, one per protocol family:
//   - HTTP: routers with a rule, services with a load balancer of URLs and
//     an optional health check
//   - TCP: routers with a HostSNI rule, services with a load balancer of
//     host:port addresses
//   - UDP: routers that only reference a service, services with a load
//     balancer of host:port addresses
//
// A section with no routers and no services is nil and is omitted from the
// encoded output, so an empty tailnet encodes as "{}".
//
// The same types carry json and yaml tags. Traefik's HTTP provider consumes
// the JSON form; the YAML form is accepted by Traefik's file provider.
//
// Example usage:
//
//	cfg := traefik.NewBuilder()
//	cfg.AddHTTP("tailscale-box1-web-router", router, "tailscale-box1-web", service)
//	doc := cfg.Build()
//	err := traefik.Encode(os.Stdout, doc, traefik.FormatYAML)
package traefik
