package main

import (
	"bytes"
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPayloadServer(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.ServeContent(w, r, "data", time.Time{}, bytes.NewReader(payload))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPClientUnthrottledByDefault(t *testing.T) {
	t.Parallel()

	client := newHTTPClient(config{timeout: time.Second})
	_, ok := client.Transport.(*nethttp.Transport)
	assert.True(t, ok)
	assert.Equal(t, time.Second, client.Timeout)
}

func TestThrottleAddsLatency(t *testing.T) {
	t.Parallel()

	server := newPayloadServer(t, []byte("hello"))
	client := newHTTPClient(config{latency: 100 * time.Millisecond})
	require.IsType(t, &throttleRoundTripper{}, client.Transport)

	start := time.Now()
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "hello", string(body))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestThrottlePacesBody(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("x"), 2048)
	server := newPayloadServer(t, payload)
	client := newHTTPClient(config{bps: 8192})

	start := time.Now()
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, payload, body)
	// 2048 bytes at 8 KiB/s take a quarter of a second.
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestThrottleLatencyHonorsCancel(t *testing.T) {
	t.Parallel()

	server := newPayloadServer(t, []byte("never"))
	client := newHTTPClient(config{latency: 10 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, server.URL, nethttp.NoBody)
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Do(req)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestThrottlePacingHonorsCancel(t *testing.T) {
	t.Parallel()

	server := newPayloadServer(t, bytes.Repeat([]byte("y"), 4096))
	client := newHTTPClient(config{bps: 1})

	ctx, cancel := context.WithCancel(context.Background())
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, server.URL, nethttp.NoBody)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	time.AfterFunc(20*time.Millisecond, cancel)
	start := time.Now()
	_, err = io.ReadAll(resp.Body)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestReadWithHTTPLatencyFlag(t *testing.T) {
	t.Parallel()

	server := newPayloadServer(t, sample)

	start := time.Now()
	out, _, err := runCmd(t, "read", server.URL, "string", "0", "3", "--http-latency", "50ms")
	require.NoError(t, err)
	assert.Equal(t, `"ID3"`, strings.TrimSpace(out))
	// HEAD, the size probe and one range fetch each wait.
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}
