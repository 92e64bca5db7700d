package provider

import "strings"

const (
	namePrefix   = "tailscale-"
	routerSuffix = "-router"
)

var hostnameReplacer = strings.NewReplacer(".", "-", "_", "-")

// Sanitize lower-cases hostname and replaces dots and underscores with
// dashes so it can be used inside a Traefik object name.
func Sanitize(hostname string) string {
	return hostnameReplacer.Replace(strings.ToLower(hostname))
}

// ServiceName is the Traefik service name for serviceName on hostname.
// The default service is named after the host alone.
func ServiceName(hostname, serviceName string) string {
	if serviceName == DefaultServiceName {
		return namePrefix + Sanitize(hostname)
	}
	return namePrefix + Sanitize(hostname) + "-" + serviceName
}

// RouterName is the Traefik router name paired with ServiceName.
func RouterName(hostname, serviceName string) string {
	return ServiceName(hostname, serviceName) + routerSuffix
}
