//go:build !windows

package localapi

import (
	"context"
	"net"
)

func dialPipe(_ context.Context, _ string) (net.Conn, error) {
	return nil, ErrPipeUnsupported
}
