// Package platform finds the tailscaled LocalAPI endpoint for the running
// operating system.
package platform

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// UnixSocketPath is where tailscaled listens on Linux and the BSDs.
	UnixSocketPath = "/var/run/tailscale/tailscaled.sock"
	// WindowsPipePath is the named pipe tailscaled serves on Windows.
	WindowsPipePath = `\\.\pipe\ProtectedPrefix\Administrators\Tailscale\tailscaled`

	// MacSharedDir holds the LocalAPI port and token of the standalone
	// macOS build.
	MacSharedDir = "/Library/Tailscale"

	lsofProofMarker = ".tailscale.ipn.macos/sameuserproof-"
	probeTimeout    = time.Second
)

var (
	// ErrUnsupportedOS is returned for an operating system tailscaled does
	// not run on.
	ErrUnsupportedOS = errors.New("platform: unsupported operating system")
	// ErrNotFound is returned when no LocalAPI endpoint could be found.
	ErrNotFound = errors.New("platform: tailscaled LocalAPI not found")
)

// Locator resolves the LocalAPI connection descriptor. The function fields
// default to the real filesystem, network and lsof.
type Locator struct {
	SharedDir string
	ReadLink  func(name string) (string, error)
	ReadFile  func(name string) ([]byte, error)
	Probe     func(ctx context.Context, address string) error
	Lsof      func(ctx context.Context) ([]byte, error)

	logger *zap.Logger
}

// NewLocator creates a Locator backed by the host system. A nil logger
// discards logs.
func NewLocator(logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{
		SharedDir: MacSharedDir,
		ReadLink:  os.Readlink,
		ReadFile:  os.ReadFile,
		Probe:     probeTCP,
		Lsof:      runLsof,
		logger:    logger.Named("platform"),
	}
}

// Default resolves the descriptor for the running operating system.
func (l *Locator) Default(ctx context.Context) (string, error) {
	return l.Descriptor(ctx, runtime.GOOS)
}

// Descriptor resolves the descriptor for goos.
func (l *Locator) Descriptor(ctx context.Context, goos string) (string, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly", "illumos", "solaris":
		return UnixSocketPath, nil
	case "windows":
		return WindowsPipePath, nil
	case "darwin":
		return l.macOS(ctx)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedOS, goos)
	}
}

// macOS tries the standalone build first and then the App Store build.
func (l *Locator) macOS(ctx context.Context) (string, error) {
	descriptor, err := l.sharedDirProof(ctx)
	if err == nil {
		return descriptor, nil
	}
	l.logger.Debug("standalone LocalAPI not found", zap.Error(err))

	descriptor, err = l.lsofProof(ctx)
	if err == nil {
		return descriptor, nil
	}
	l.logger.Debug("App Store LocalAPI not found", zap.Error(err))

	return "", fmt.Errorf("%w: no LocalAPI credentials on macOS", ErrNotFound)
}

// sharedDirProof reads the port from the ipnport symlink and the token from
// sameuserproof-<port>, then checks that the port answers.
func (l *Locator) sharedDirProof(ctx context.Context) (string, error) {
	port, err := l.ReadLink(filepath.Join(l.SharedDir, "ipnport"))
	if err != nil {
		return "", fmt.Errorf("failed to read ipnport: %w", err)
	}
	if !validPort(port) {
		return "", fmt.Errorf("ipnport target %q is not a port", port)
	}

	data, err := l.ReadFile(filepath.Join(l.SharedDir, "sameuserproof-"+port))
	if err != nil {
		return "", fmt.Errorf("failed to read sameuserproof: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", errors.New("empty sameuserproof token")
	}

	address := net.JoinHostPort("127.0.0.1", port)
	if err := l.Probe(ctx, address); err != nil {
		return "", fmt.Errorf("port %s not reachable: %w", port, err)
	}

	return tcpDescriptor(port, token), nil
}

// lsofProof finds the sameuserproof file held open by IPNExtension. The
// port and token are encoded in its name.
func (l *Locator) lsofProof(ctx context.Context) (string, error) {
	out, err := l.Lsof(ctx)
	if err != nil {
		return "", fmt.Errorf("lsof failed: %w", err)
	}

	port, token, ok := parseLsof(out)
	if !ok {
		return "", errors.New("no IPNExtension sameuserproof found")
	}
	return tcpDescriptor(port, token), nil
}

// parseLsof scans lsof -F output for ".../sameuserproof-<port>-<token>".
func parseLsof(out []byte) (port, token string, ok bool) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		i := strings.Index(line, lsofProofMarker)
		if i < 0 {
			continue
		}

		p, tok, found := strings.Cut(line[i+len(lsofProofMarker):], "-")
		if found && validPort(p) {
			return p, tok, true
		}
	}
	return "", "", false
}

func tcpDescriptor(port, token string) string {
	return "tcp://127.0.0.1:" + port + ":" + token
}

func validPort(s string) bool {
	_, err := strconv.ParseUint(s, 10, 16)
	return err == nil
}

func probeTCP(ctx context.Context, address string) error {
	dialer := &net.Dialer{Timeout: probeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}
	return conn.Close()
}

func runLsof(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "lsof",
		"-n",
		"-a",
		fmt.Sprintf("-u%d", os.Getuid()),
		"-c", "IPNExtension",
		"-F",
	)
	return cmd.Output()
}
