package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/internal/provider"
)

func TestParseServiceMapping(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]provider.Service
	}{
		{"empty", "", nil},
		{"single_tcp", "db:5432:tcp", map[string]provider.Service{
			"db": {Name: "db", Port: 5432, Protocol: provider.ProtocolTCP, Scheme: "tcp"},
		}},
		{"protocol_defaults_to_http", "web:8080", map[string]provider.Service{
			"web": {Name: "web", Port: 8080, Protocol: provider.ProtocolHTTP, Scheme: "http"},
		}},
		{"https_is_http", "api:8443:https", map[string]provider.Service{
			"api": {Name: "api", Port: 8443, Protocol: provider.ProtocolHTTP, Scheme: "http"},
		}},
		{"several_with_spaces", " db : 5432 : tcp , dns:53:udp ", map[string]provider.Service{
			"db":  {Name: "db", Port: 5432, Protocol: provider.ProtocolTCP, Scheme: "tcp"},
			"dns": {Name: "dns", Port: 53, Protocol: provider.ProtocolUDP, Scheme: "udp"},
		}},
		{"bad_entries_dropped", "db:notaport:tcp,lonely,cache:6379:tcp,:80", map[string]provider.Service{
			"cache": {Name: "cache", Port: 6379, Protocol: provider.ProtocolTCP, Scheme: "tcp"},
		}},
		{"all_bad", "db:x,web", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseServiceMapping(tt.in))
		})
	}
}

func TestParseDomainMapping(t *testing.T) {
	assert.Nil(t, ParseDomainMapping(""))
	assert.Equal(t, map[string]string{"web": "app.example.net", "api": "api.example.net"},
		ParseDomainMapping("web:app.example.net, api : api.example.net"))
	assert.Equal(t, map[string]string{"web": "app.example.net"},
		ParseDomainMapping("web:app.example.net,bad,too:many:parts"))
	assert.Nil(t, ParseDomainMapping("nodomain"))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" , ,"))
	assert.Equal(t, []string{"a", "b"}, splitList("a, b,"))
}
