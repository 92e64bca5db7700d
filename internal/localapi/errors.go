package localapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConnection is returned when the daemon cannot be reached: the socket,
	// pipe or TCP endpoint is missing or refuses the connection, or the
	// response could not be read.
	ErrConnection = errors.New("localapi: connection failed")
	// ErrDecode is returned when the status body is not a valid status document.
	ErrDecode = errors.New("localapi: failed to decode status")
	// ErrInvalidDescriptor is returned for a connection descriptor that names
	// no usable endpoint.
	ErrInvalidDescriptor = errors.New("localapi: invalid connection descriptor")
	// ErrPipeUnsupported is returned when dialing a named pipe on a platform
	// without named pipes.
	ErrPipeUnsupported = errors.New("localapi: named pipes are not supported on this platform")
)

// APIError is returned when the daemon answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("localapi: HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("localapi: HTTP %d: %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}
