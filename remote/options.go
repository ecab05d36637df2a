package remote

import (
	"log/slog"
	"time"
)

// DefaultBlockSize is the block size used when WithBlockSize is not given.
const DefaultBlockSize int64 = 2 << 10

// Option configures a Source.
type Option func(*Source)

// WithBlockSize sets the size of a cached block in bytes. It must be > 0.
func WithBlockSize(n int64) Option {
	return func(s *Source) {
		s.blockSize = n
	}
}

// WithBlockRadius fetches n extra blocks on each side of every requested
// range. It must be >= 0. Defaults to 0.
func WithBlockRadius(n int64) Option {
	return func(s *Source) {
		s.blockRadius = n
	}
}

// WithLegacyBlockEnd makes BlockRange add one block past the block holding
// the range end before applying the radius. Reads then fetch one more block
// than needed, matching readers written against that arithmetic.
func WithLegacyBlockEnd() Option {
	return func(s *Source) {
		s.legacyEnd = true
	}
}

// WithFetchTimeout bounds fetches started by ByteAt and BytesAt, which take
// no context. Values <= 0 disable the bound. Defaults to 0.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Source) {
		s.timeout = d
	}
}

// WithLogger sets the logger for fetch activity.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}
