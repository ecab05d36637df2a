package remote

import (
	"context"

	"github.com/meigma/binfile"
)

// UnitBytes is the range unit used for every request.
const UnitBytes = "bytes"

// Request describes one range fetch.
type Request struct {
	// Range is the inclusive byte range wanted. End may lie past the end of
	// the resource when the last block is partial.
	Range binfile.Range

	// Unit is the range unit, always UnitBytes.
	Unit string

	// Async reports whether the fetch serves a callback-style load.
	Async bool
}

// Response carries the bytes returned for a Request.
//
// A transport that ignores range requests returns the whole resource; the
// Source detects this when len(Data) equals the resource length and caches
// everything at once.
type Response struct {
	Data []byte
}

// Size returns the number of bytes received.
func (r *Response) Size() int64 {
	return int64(len(r.Data))
}

// Fetcher performs range fetches for a Source.
// Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req Request) (*Response, error)

// Fetch calls f(ctx, req).
func (f FetcherFunc) Fetch(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
