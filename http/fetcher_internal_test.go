package http //nolint:revive // intentional naming for domain clarity

import (
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value     string
		wantStart int64
		wantSize  int64
		wantErr   bool
	}{
		{value: "bytes 0-0/1234", wantStart: 0, wantSize: 1234},
		{value: "  bytes 10-19/25 ", wantStart: 10, wantSize: 25},
		{value: "bytes 0-0/*", wantErr: true},
		{value: "items 0-0/10", wantErr: true},
		{value: "bytes 0-0", wantErr: true},
		{value: "bytes 0-0/-1", wantErr: true},
		{value: "bytes 0-0/abc", wantErr: true},
		{value: "bytes x-9/10", wantErr: true},
		{value: "bytes 5/10", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()
			start, size, err := parseContentRange(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantSize, size)
		})
	}
}

func TestNewFetcherDefaultClientHasTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.ServeContent(w, r, "data", time.Time{}, strings.NewReader("abcd"))
	}))
	t.Cleanup(server.Close)

	f, err := NewFetcher(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, f.client.Timeout)
	assert.NotSame(t, nethttp.DefaultClient, f.client)

	custom := &nethttp.Client{}
	f, err = NewFetcher(context.Background(), server.URL, WithClient(custom), WithTimeout(time.Second))
	require.NoError(t, err)
	assert.Same(t, custom, f.client)
	assert.Zero(t, f.client.Timeout)
}
