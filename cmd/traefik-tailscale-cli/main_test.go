package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/httpclient"
	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/tailscale"
)

const configJSON = `{"http":{"routers":{"tailscale-web-router":{"rule":"HostRegexp(` + "`.*`" + `)","service":"tailscale-web"}},"services":{"tailscale-web":{"loadBalancer":{"servers":[{"url":"http://100.64.0.5:80"}]}}}},"tcp":{"routers":{"tailscale-db-postgres-router":{"rule":"HostSNI(` + "`*`" + `)","service":"tailscale-db-postgres"}},"services":{"tailscale-db-postgres":{"loadBalancer":{"servers":[{"address":"100.64.0.6:5432"}]}}}}}`

func newProviderServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health":
			json.NewEncoder(w).Encode(httpclient.HealthResponse{Status: "OK", Service: "Traefik Tailscale Provider"})

		case "/config":
			if r.URL.Query().Get("format") == "yaml" {
				w.Header().Set("Content-Type", "application/yaml")
				w.Write([]byte("http:\n  routers: {}\n"))
				return
			}
			w.Write([]byte(configJSON))

		case "/status":
			status := tailscale.Status{
				BackendState:   "Running",
				CurrentTailnet: &tailscale.TailnetStatus{Name: "example.com"},
				Peer: map[string]*tailscale.PeerStatus{
					"nodekey:a": {HostName: "web", OS: "linux", Online: true, TailscaleIPs: []string{"100.64.0.5"}, Tags: []string{"tag:web"}},
					"nodekey:b": {HostName: "laptop", OS: "macOS", TailscaleIPs: []string{"100.64.0.7"}},
				},
			}
			json.NewEncoder(w).Encode(status)

		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(httpclient.ErrorResponse{Error: "Not Found", Message: "Not found", Code: 404})
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHealthCommand(t *testing.T) {
	server := newProviderServer(t)

	out, err := execute(t, "health", "--server", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Checking health of "+server.URL)
	assert.Contains(t, out, "Traefik Tailscale Provider is healthy")
}

func TestConfigCommand(t *testing.T) {
	server := newProviderServer(t)

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "config", "--server", server.URL)
		require.NoError(t, err)
		assert.JSONEq(t, configJSON, out)
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "config", "--server", server.URL, "--format", "yaml")
		require.NoError(t, err)
		assert.Equal(t, "http:\n  routers: {}\n", out)
	})

	t.Run("summary", func(t *testing.T) {
		out, err := execute(t, "config", "--server", server.URL, "--summary")
		require.NoError(t, err)
		assert.Contains(t, out, "http routers: 1  services: 1")
		assert.Contains(t, out, "tcp  routers: 1  services: 1")
		assert.Contains(t, out, "udp  routers: 0  services: 0")
	})

	t.Run("bad_format", func(t *testing.T) {
		_, err := execute(t, "config", "--server", server.URL, "--format", "toml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown format")
	})
}

func TestStatusCommand(t *testing.T) {
	server := newProviderServer(t)

	t.Run("table", func(t *testing.T) {
		out, err := execute(t, "status", "--server", server.URL)
		require.NoError(t, err)

		assert.Contains(t, out, "Backend: Running  Tailnet: example.com")
		assert.Contains(t, out, "Peers: 2 (1 online)")
		lines := strings.Split(out, "\n")
		var web, laptop string
		for _, line := range lines {
			switch {
			case strings.HasPrefix(line, "web "):
				web = line
			case strings.HasPrefix(line, "laptop "):
				laptop = line
			}
		}
		assert.Contains(t, web, "online")
		assert.Contains(t, web, "tag:web")
		assert.Contains(t, web, "never")
		assert.Contains(t, laptop, "offline")
		assert.Contains(t, laptop, "100.64.0.7")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "status", "--server", server.URL, "--json")
		require.NoError(t, err)

		var status tailscale.Status
		require.NoError(t, json.Unmarshal([]byte(out), &status))
		assert.Len(t, status.Peer, 2)
	})
}

func TestAPIErrorIsReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(httpclient.ErrorResponse{
			Error:   "Service Unavailable",
			Message: "Failed to fetch Tailscale status: connection refused",
			Code:    503,
		})
	}))
	defer server.Close()

	_, err := execute(t, "status", "--server", server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (503)")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPrintStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no_peers", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, printStatus(&out, &tailscale.Status{BackendState: "NeedsLogin"}, now))
		assert.Equal(t, "Backend: NeedsLogin\nNo peers found\n", out.String())
	})

	t.Run("states_and_last_write", func(t *testing.T) {
		status := &tailscale.Status{
			BackendState: "Running",
			Peer: map[string]*tailscale.PeerStatus{
				"nodekey:a": {HostName: "exit", Online: true, ExitNode: true, LastWrite: now.Add(-90 * time.Second)},
				"nodekey:b": {HostName: "old", Online: true, Expired: true},
			},
		}

		var out bytes.Buffer
		require.NoError(t, printStatus(&out, status, now))

		assert.Contains(t, out.String(), "exit-node")
		assert.Contains(t, out.String(), "1m30s ago")
		assert.Contains(t, out.String(), "expired")
	})
}
