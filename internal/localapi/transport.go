package localapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// localAPIHost is the authority tailscaled expects on LocalAPI requests.
	localAPIHost = "local-tailscaled.sock"

	// maxBodyBytes bounds the status document read from the daemon.
	maxBodyBytes = 64 << 20

	// DefaultTimeout bounds one request, connection included.
	DefaultTimeout = 10 * time.Second
)

// Response is the raw outcome of one LocalAPI request.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport performs GET requests against the LocalAPI. Implementations are
// safe for concurrent use.
type Transport interface {
	// Get issues one GET for path (which may carry a query string). A non-nil
	// error always wraps ErrConnection.
	Get(ctx context.Context, path string) (*Response, error)

	// String describes the endpoint for logs. It never includes credentials.
	String() string
}

// baseTransport is the request machinery shared by all transports. The
// variants differ only in how the connection is dialed, the URL host and the
// optional credential.
type baseTransport struct {
	httpClient *http.Client
	baseURL    string
	authHeader string
}

func newBaseTransport(dial func(ctx context.Context) (net.Conn, error), baseURL, token string, timeout time.Duration) baseTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:       4,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: true,
	}
	if dial != nil {
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dial(ctx)
		}
	} else {
		transport.DialContext = (&net.Dialer{Timeout: timeout}).DialContext
	}

	base := baseTransport{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL: baseURL,
	}
	if token != "" {
		base.authHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+token))
	}
	return base
}

func (b *baseTransport) get(ctx context.Context, path string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrConnection, err)
	}
	req.Host = localAPIHost
	if b.authHeader != "" {
		req.Header.Set("Authorization", b.authHeader)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrConnection, err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// UnixTransport talks to tailscaled over its Unix domain socket.
type UnixTransport struct {
	baseTransport
	socketPath string
}

// NewUnixTransport creates a transport for the socket at socketPath.
func NewUnixTransport(socketPath string, timeout time.Duration) *UnixTransport {
	dialer := &net.Dialer{Timeout: effectiveTimeout(timeout)}
	dial := func(ctx context.Context) (net.Conn, error) {
		return dialer.DialContext(ctx, "unix", socketPath)
	}
	return &UnixTransport{
		baseTransport: newBaseTransport(dial, "http://"+localAPIHost, "", timeout),
		socketPath:    socketPath,
	}
}

// Get implements Transport.
func (t *UnixTransport) Get(ctx context.Context, path string) (*Response, error) {
	return t.get(ctx, path)
}

func (t *UnixTransport) String() string {
	return "unix:" + t.socketPath
}

// PipeTransport talks to tailscaled over a Windows named pipe.
type PipeTransport struct {
	baseTransport
	pipePath string
}

// NewPipeTransport creates a transport for the named pipe at pipePath.
func NewPipeTransport(pipePath string, timeout time.Duration) *PipeTransport {
	dial := func(ctx context.Context) (net.Conn, error) {
		return dialPipe(ctx, pipePath)
	}
	return &PipeTransport{
		baseTransport: newBaseTransport(dial, "http://"+localAPIHost, "", timeout),
		pipePath:      pipePath,
	}
}

// Get implements Transport.
func (t *PipeTransport) Get(ctx context.Context, path string) (*Response, error) {
	return t.get(ctx, path)
}

func (t *PipeTransport) String() string {
	return "pipe:" + t.pipePath
}

// TCPTransport talks to a LocalAPI exposed on a loopback TCP port, as done by
// the macOS GUI builds. Every request carries the same-user-proof token as a
// basic-auth password when one is configured.
type TCPTransport struct {
	baseTransport
	address string
}

// NewTCPTransport creates a transport for host:port. An empty token sends
// requests unauthenticated.
func NewTCPTransport(address, token string, timeout time.Duration) *TCPTransport {
	return &TCPTransport{
		baseTransport: newBaseTransport(nil, "http://"+address, token, timeout),
		address:       address,
	}
}

// Get implements Transport.
func (t *TCPTransport) Get(ctx context.Context, path string) (*Response, error) {
	return t.get(ctx, path)
}

func (t *TCPTransport) String() string {
	if t.authHeader != "" {
		return "tcp:" + t.address + " (token)"
	}
	return "tcp:" + t.address
}

// NewTransport selects a transport from a connection descriptor:
//
//	tcp://host:port[:token]   loopback TCP, optional same-user-proof token
//	\\.\pipe\name            Windows named pipe (npipe:// prefix also accepted)
//	/path/to/socket          Unix domain socket (unix:// prefix also accepted)
func NewTransport(descriptor string, timeout time.Duration) (Transport, error) {
	descriptor = strings.TrimSpace(descriptor)
	if descriptor == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidDescriptor)
	}

	switch {
	case strings.HasPrefix(descriptor, "tcp://"):
		address, token, err := parseTCPDescriptor(strings.TrimPrefix(descriptor, "tcp://"))
		if err != nil {
			return nil, err
		}
		return NewTCPTransport(address, token, timeout), nil
	case strings.HasPrefix(descriptor, "npipe://"):
		return NewPipeTransport(strings.TrimPrefix(descriptor, "npipe://"), timeout), nil
	case isPipePath(descriptor):
		return NewPipeTransport(descriptor, timeout), nil
	case strings.HasPrefix(descriptor, "unix://"):
		path := strings.TrimPrefix(descriptor, "unix://")
		if path == "" {
			return nil, fmt.Errorf("%w: empty socket path", ErrInvalidDescriptor)
		}
		return NewUnixTransport(path, timeout), nil
	default:
		return NewUnixTransport(descriptor, timeout), nil
	}
}

// parseTCPDescriptor splits "host:port:token" into the dial address and the
// token. "host:port" yields an empty token.
func parseTCPDescriptor(rest string) (string, string, error) {
	parts := strings.SplitN(rest, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: want tcp://host:port[:token], got tcp://%s", ErrInvalidDescriptor, rest)
	}

	address := net.JoinHostPort(parts[0], parts[1])
	if len(parts) == 3 {
		return address, parts[2], nil
	}
	return address, "", nil
}

func isPipePath(descriptor string) bool {
	return strings.HasPrefix(descriptor, `\\.\pipe\`) || strings.HasPrefix(descriptor, `//./pipe/`)
}

func effectiveTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultTimeout
	}
	return timeout
}
