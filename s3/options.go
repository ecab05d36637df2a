package s3

import (
	"log/slog"

	"github.com/meigma/binfile/remote"
)

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger for the Fetcher and the Source built by Open.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithETagPinning sends If-Match with every range request so reads fail
// instead of mixing bytes from two versions of the object.
func WithETagPinning() Option {
	return func(f *Fetcher) {
		f.pinETag = true
	}
}

// WithSourceOptions passes options through to remote.New in Open.
func WithSourceOptions(opts ...remote.Option) Option {
	return func(f *Fetcher) {
		f.sourceOpts = append(f.sourceOpts, opts...)
	}
}
