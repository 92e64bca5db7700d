package traefik

// DynamicConfig is the root of a Traefik dynamic configuration document.
type DynamicConfig struct {
	HTTP *HTTPConfig `json:"http,omitempty" yaml:"http,omitempty"`
	TCP  *TCPConfig  `json:"tcp,omitempty" yaml:"tcp,omitempty"`
	UDP  *UDPConfig  `json:"udp,omitempty" yaml:"udp,omitempty"`
}

// HTTPConfig is the http section.
type HTTPConfig struct {
	Routers     map[string]Router     `json:"routers" yaml:"routers"`
	Services    map[string]Service    `json:"services" yaml:"services"`
	Middlewares map[string]Middleware `json:"middlewares,omitempty" yaml:"middlewares,omitempty"`
}

// TCPConfig is the tcp section.
type TCPConfig struct {
	Routers  map[string]TCPRouter  `json:"routers" yaml:"routers"`
	Services map[string]TCPService `json:"services" yaml:"services"`
}

// UDPConfig is the udp section.
type UDPConfig struct {
	Routers  map[string]UDPRouter  `json:"routers" yaml:"routers"`
	Services map[string]UDPService `json:"services" yaml:"services"`
}

// Router is an HTTP router.
type Router struct {
	Rule        string     `json:"rule" yaml:"rule"`
	Service     string     `json:"service" yaml:"service"`
	Middlewares []string   `json:"middlewares,omitempty" yaml:"middlewares,omitempty"`
	Priority    *int       `json:"priority,omitempty" yaml:"priority,omitempty"`
	TLS         *TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// TLSConfig enables TLS on an HTTP router.
type TLSConfig struct {
	CertResolver string `json:"certResolver,omitempty" yaml:"certResolver,omitempty"`
}

// Service is an HTTP service.
type Service struct {
	LoadBalancer LoadBalancer `json:"loadBalancer" yaml:"loadBalancer"`
}

// LoadBalancer balances HTTP requests across servers.
type LoadBalancer struct {
	Servers     []Server     `json:"servers" yaml:"servers"`
	HealthCheck *HealthCheck `json:"healthCheck,omitempty" yaml:"healthCheck,omitempty"`
}

// Server is an HTTP backend.
type Server struct {
	URL    string `json:"url" yaml:"url"`
	Weight *int   `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// HealthCheck configures active health checking of HTTP servers.
type HealthCheck struct {
	Path     string `json:"path" yaml:"path"`
	Interval string `json:"interval,omitempty" yaml:"interval,omitempty"`
	Timeout  string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Middleware is an HTTP middleware definition. Only the headers and retry
// middlewares are modelled; routers reference them by name.
type Middleware struct {
	Headers *HeadersMiddleware `json:"headers,omitempty" yaml:"headers,omitempty"`
	Retry   *RetryMiddleware   `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// HeadersMiddleware adds request and response headers.
type HeadersMiddleware struct {
	CustomRequestHeaders  map[string]string `json:"customRequestHeaders,omitempty" yaml:"customRequestHeaders,omitempty"`
	CustomResponseHeaders map[string]string `json:"customResponseHeaders,omitempty" yaml:"customResponseHeaders,omitempty"`
}

// RetryMiddleware retries failed requests.
type RetryMiddleware struct {
	Attempts int `json:"attempts" yaml:"attempts"`
}

// TCPRouter is a TCP router.
type TCPRouter struct {
	Rule    string        `json:"rule" yaml:"rule"`
	Service string        `json:"service" yaml:"service"`
	TLS     *TCPTLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// TCPTLSConfig configures TLS on a TCP router.
type TCPTLSConfig struct {
	Passthrough *bool `json:"passthrough,omitempty" yaml:"passthrough,omitempty"`
}

// TCPService is a TCP service.
type TCPService struct {
	LoadBalancer TCPLoadBalancer `json:"loadBalancer" yaml:"loadBalancer"`
}

// TCPLoadBalancer balances connections across TCP servers.
type TCPLoadBalancer struct {
	Servers []TCPServer `json:"servers" yaml:"servers"`
}

// TCPServer is a TCP backend.
type TCPServer struct {
	Address string `json:"address" yaml:"address"`
	Weight  *int   `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// UDPRouter is a UDP router. UDP has no content based routing, so there is
// no rule.
type UDPRouter struct {
	Service string `json:"service" yaml:"service"`
}

// UDPService is a UDP service.
type UDPService struct {
	LoadBalancer UDPLoadBalancer `json:"loadBalancer" yaml:"loadBalancer"`
}

// UDPLoadBalancer balances datagrams across UDP servers.
type UDPLoadBalancer struct {
	Servers []UDPServer `json:"servers" yaml:"servers"`
}

// UDPServer is a UDP backend.
type UDPServer struct {
	Address string `json:"address" yaml:"address"`
	Weight  *int   `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// Counts holds the number of routers and services in one section.
type Counts struct {
	Routers  int
	Services int
}

// Counts reports routers and services per protocol, keyed "http", "tcp" and
// "udp". Absent sections report zero.
func (c *DynamicConfig) Counts() map[string]Counts {
	counts := map[string]Counts{"http": {}, "tcp": {}, "udp": {}}
	if c == nil {
		return counts
	}
	if c.HTTP != nil {
		counts["http"] = Counts{Routers: len(c.HTTP.Routers), Services: len(c.HTTP.Services)}
	}
	if c.TCP != nil {
		counts["tcp"] = Counts{Routers: len(c.TCP.Routers), Services: len(c.TCP.Services)}
	}
	if c.UDP != nil {
		counts["udp"] = Counts{Routers: len(c.UDP.Routers), Services: len(c.UDP.Services)}
	}
	return counts
}
