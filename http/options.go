package http //nolint:revive // intentional naming for domain clarity

import (
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/meigma/binfile/remote"
)

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout of the default client.
// It has no effect when WithClient supplies a client. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithClient sets the HTTP client used for requests. The client's own
// Timeout applies instead of DefaultTimeout.
func WithClient(client *nethttp.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithHeaders sets additional headers on each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(f *Fetcher) {
		if headers == nil {
			return
		}
		f.headers = headers.Clone()
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(f *Fetcher) {
		if f.headers == nil {
			f.headers = make(nethttp.Header)
		}
		f.headers.Set(key, value)
	}
}

// WithConditionalHeaders sends If-Match or If-Unmodified-Since on range
// requests so a resource that changes between fetches fails with ErrModified
// instead of mixing two versions in one cache.
// This is disabled by default because some servers reject conditional range requests.
func WithConditionalHeaders() Option {
	return func(f *Fetcher) {
		f.useConditionalHeaders = true
	}
}

// WithLogger sets the logger for requests. Open passes it on to the Source.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithSourceOptions sets options applied to the Source created by Open.
func WithSourceOptions(opts ...remote.Option) Option {
	return func(f *Fetcher) {
		f.sourceOpts = append(f.sourceOpts, opts...)
	}
}
