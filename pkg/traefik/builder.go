package traefik

// Builder accumulates routers and services for the three protocol sections.
// Adding a name that already exists overwrites the earlier entry.
type Builder struct {
	httpRouters  map[string]Router
	httpServices map[string]Service
	tcpRouters   map[string]TCPRouter
	tcpServices  map[string]TCPService
	udpRouters   map[string]UDPRouter
	udpServices  map[string]UDPService
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		httpRouters:  make(map[string]Router),
		httpServices: make(map[string]Service),
		tcpRouters:   make(map[string]TCPRouter),
		tcpServices:  make(map[string]TCPService),
		udpRouters:   make(map[string]UDPRouter),
		udpServices:  make(map[string]UDPService),
	}
}

// AddHTTP adds an HTTP service and the router pointing at it.
func (b *Builder) AddHTTP(routerName string, router Router, serviceName string, service Service) {
	b.httpServices[serviceName] = service
	b.httpRouters[routerName] = router
}

// AddTCP adds a TCP service and the router pointing at it.
func (b *Builder) AddTCP(routerName string, router TCPRouter, serviceName string, service TCPService) {
	b.tcpServices[serviceName] = service
	b.tcpRouters[routerName] = router
}

// AddUDP adds a UDP service and the router pointing at it.
func (b *Builder) AddUDP(routerName string, router UDPRouter, serviceName string, service UDPService) {
	b.udpServices[serviceName] = service
	b.udpRouters[routerName] = router
}

// Build returns the accumulated document. Sections without routers and
// services are left nil.
func (b *Builder) Build() *DynamicConfig {
	cfg := &DynamicConfig{}

	if len(b.httpRouters) > 0 || len(b.httpServices) > 0 {
		cfg.HTTP = &HTTPConfig{
			Routers:  b.httpRouters,
			Services: b.httpServices,
		}
	}
	if len(b.tcpRouters) > 0 || len(b.tcpServices) > 0 {
		cfg.TCP = &TCPConfig{
			Routers:  b.tcpRouters,
			Services: b.tcpServices,
		}
	}
	if len(b.udpRouters) > 0 || len(b.udpServices) > 0 {
		cfg.UDP = &UDPConfig{
			Routers:  b.udpRouters,
			Services: b.udpServices,
		}
	}

	return cfg
}
