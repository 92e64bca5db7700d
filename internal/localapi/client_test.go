package localapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records requested paths and replays a canned response.
type fakeTransport struct {
	mu       sync.Mutex
	paths    []string
	response *Response
	err      error
}

func (f *fakeTransport) Get(_ context.Context, path string) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return f.response, f.err
}

func (f *fakeTransport) String() string { return "fake" }

func TestClient_Fetch(t *testing.T) {
	t.Run("with_peers", func(t *testing.T) {
		transport := &fakeTransport{response: &Response{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"Version":"1.76.1","BackendState":"Running","Peer":{"k1":{"HostName":"box1","Online":true}}}`),
		}}
		client := NewClient(transport, nil)

		status, err := client.Status(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{StatusPath}, transport.paths)
		assert.Equal(t, "1.76.1", status.Version)
		assert.Equal(t, "Running", status.BackendState)
		require.Contains(t, status.Peer, "k1")
		assert.Equal(t, "box1", status.Peer["k1"].HostName)
	})

	t.Run("without_peers", func(t *testing.T) {
		transport := &fakeTransport{response: &Response{StatusCode: http.StatusOK, Body: []byte(`{"Version":"1.76.1"}`)}}
		client := NewClient(transport, nil)

		require.NoError(t, client.TestConnection(context.Background()))
		assert.Equal(t, []string{"/localapi/v0/status?peers=false"}, transport.paths)
	})

	t.Run("api_error", func(t *testing.T) {
		transport := &fakeTransport{response: &Response{StatusCode: http.StatusForbidden, Body: []byte("access denied")}}
		client := NewClient(transport, nil)

		_, err := client.Status(context.Background())
		require.Error(t, err)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		assert.Contains(t, err.Error(), "HTTP 403")
		assert.Contains(t, err.Error(), "access denied")
		assert.False(t, errors.Is(err, ErrDecode))
	})

	t.Run("api_error_body_truncated", func(t *testing.T) {
		transport := &fakeTransport{response: &Response{StatusCode: http.StatusInternalServerError, Body: []byte(strings.Repeat("x", 4096))}}
		client := NewClient(transport, nil)

		_, err := client.Status(context.Background())
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Len(t, apiErr.Body, maxErrorBody)
	})

	t.Run("decode_error", func(t *testing.T) {
		for _, body := range []string{"", "not json", `{"Peer": "wrong-type"}`} {
			transport := &fakeTransport{response: &Response{StatusCode: http.StatusOK, Body: []byte(body)}}
			client := NewClient(transport, nil)

			status, err := client.Status(context.Background())
			assert.Nil(t, status, body)
			assert.ErrorIs(t, err, ErrDecode, body)
		}
	})

	t.Run("connection_error_is_passed_through", func(t *testing.T) {
		transport := &fakeTransport{err: fmt.Errorf("%w: dial unix: no such file", ErrConnection)}
		client := NewClient(transport, nil)

		err := client.TestConnection(context.Background())
		assert.ErrorIs(t, err, ErrConnection)
	})
}

func TestClient_Endpoint(t *testing.T) {
	assert.Equal(t, "fake", NewClient(&fakeTransport{}, nil).Endpoint())

	transport, err := NewTransport("tcp://127.0.0.1:41112:s3cret", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "tcp:127.0.0.1:41112 (token)", NewClient(transport, nil).Endpoint())
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "localapi: HTTP 502: Bad Gateway", (&APIError{StatusCode: 502}).Error())
	assert.Equal(t, "localapi: HTTP 401: Unauthorized: nope", (&APIError{StatusCode: 401, Body: "nope"}).Error())
}
