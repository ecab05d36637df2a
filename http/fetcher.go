// Package http provides a remote.Fetcher backed by HTTP range requests.
package http //nolint:revive // intentional naming for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/binfile/remote"
)

// DefaultTimeout bounds each request made by the default client, so reads
// through a stalled server fail instead of blocking forever.
const DefaultTimeout = time.Minute

var (
	// ErrRangeNotSatisfiable is returned when the server answers 416.
	ErrRangeNotSatisfiable = errors.New("http: range not satisfiable")

	// ErrModified is returned when a conditional range request fails because
	// the resource changed since it was probed.
	ErrModified = errors.New("http: resource modified")

	// ErrRangeMismatch is returned when a partial response covers a range
	// other than the one requested.
	ErrRangeMismatch = errors.New("http: response range mismatch")
)

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Op     string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http: %s failed: %s", e.Op, e.Status)
}

// Fetcher implements remote.Fetcher over HTTP range requests.
// It is safe for concurrent use.
type Fetcher struct {
	url                   string
	client                *nethttp.Client
	timeout               time.Duration
	headers               nethttp.Header
	size                  int64
	etag                  string
	lastModified          string
	sourceID              digest.Digest
	useConditionalHeaders bool
	logger                *slog.Logger
	sourceOpts            []remote.Option
}

// NewFetcher creates a Fetcher for url. It probes the remote to determine
// the content size.
func NewFetcher(ctx context.Context, url string, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		url:     url,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &nethttp.Client{Timeout: f.timeout}
	}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}

	size, etag, lastModified, err := f.fetchMetadata(ctx)
	if err != nil {
		return nil, err
	}
	f.size = size
	f.etag = etag
	f.lastModified = lastModified
	f.sourceID = digest.FromString(f.identity())
	f.logger = f.logger.With(slog.String("source", f.sourceID.Encoded()[:12]))
	f.logger.Debug("probed remote", slog.Int64("size", size), slog.Bool("etag", etag != ""))
	return f, nil
}

// Open probes url and returns a remote.Source reading from it.
func Open(ctx context.Context, url string, opts ...Option) (*remote.Source, error) {
	f, err := NewFetcher(ctx, url, opts...)
	if err != nil {
		return nil, err
	}
	srcOpts := append([]remote.Option{remote.WithLogger(f.logger)}, f.sourceOpts...)
	return remote.New(f, f.size, srcOpts...)
}

// Size returns the total size of the remote content.
func (f *Fetcher) Size() int64 {
	return f.size
}

// SourceID returns a digest identifying the remote content. It is derived
// from the URL and validators, so it can be logged without exposing signed
// query parameters.
func (f *Fetcher) SourceID() digest.Digest {
	return f.sourceID
}

// Fetch performs one range request. A server that ignores the Range header
// and answers 200 yields the complete body, which the Source caches whole.
func (f *Fetcher) Fetch(ctx context.Context, req remote.Request) (*remote.Response, error) {
	if req.Unit != "" && req.Unit != remote.UnitBytes {
		return nil, fmt.Errorf("http: unsupported range unit %q", req.Unit)
	}
	resp, err := f.rangeRequest(ctx, req.Range.Start, req.Range.End, true)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
		_ = resp.Body.Close()
	}()

	var body io.Reader
	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
		if err := f.checkContentRange(resp.Header.Get("Content-Range"), req.Range.Start); err != nil {
			return nil, err
		}
		body = io.LimitReader(resp.Body, req.Range.Len())
	case nethttp.StatusOK:
		f.logger.Debug("server ignored range request", slog.Int64("size", resp.ContentLength))
		// One byte past the probed size is enough to tell a changed resource.
		body = io.LimitReader(resp.Body, f.size+1)
	case nethttp.StatusRequestedRangeNotSatisfiable:
		return nil, ErrRangeNotSatisfiable
	case nethttp.StatusPreconditionFailed:
		if f.hasConditionalHeaders() {
			return nil, ErrModified
		}
		return nil, &StatusError{Op: "range request", Status: resp.Status, Code: resp.StatusCode}
	default:
		return nil, &StatusError{Op: "range request", Status: resp.Status, Code: resp.StatusCode}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == nethttp.StatusOK && int64(len(data)) != f.size {
		return nil, fmt.Errorf("%w: full body is %d bytes, probed %d", ErrModified, len(data), f.size)
	}
	return &remote.Response{Data: data}, nil
}

// checkContentRange verifies that a 206 answer starts where it was asked to
// and describes a resource of the probed size.
func (f *Fetcher) checkContentRange(value string, wantStart int64) error {
	start, size, err := parseContentRange(value)
	if err != nil {
		return err
	}
	if size != f.size {
		return fmt.Errorf("%w: Content-Range size %d, probed %d", ErrModified, size, f.size)
	}
	if start != wantStart {
		return fmt.Errorf("%w: got %q for start %d", ErrRangeMismatch, value, wantStart)
	}
	return nil
}

// identity is the pre-digest form of SourceID.
func (f *Fetcher) identity() string {
	if f.etag != "" {
		return fmt.Sprintf("url:%s|etag:%s", f.url, f.etag)
	}
	if f.lastModified != "" {
		return fmt.Sprintf("url:%s|mod:%s|size:%d", f.url, f.lastModified, f.size)
	}
	return fmt.Sprintf("url:%s|size:%d", f.url, f.size)
}

// fetchMetadata retrieves content size and validators from the remote server.
// It first attempts a HEAD request, then verifies with a range probe.
func (f *Fetcher) fetchMetadata(ctx context.Context) (size int64, etag, lastModified string, err error) {
	size = -1

	if resp, headErr := f.doHead(ctx); headErr == nil {
		if resp.StatusCode == nethttp.StatusOK {
			size = resp.ContentLength
			etag = resp.Header.Get("ETag")
			lastModified = resp.Header.Get("Last-Modified")
		}
		resp.Body.Close()
	}

	rangeSize, rangeETag, rangeLastModified, err := f.rangeProbe(ctx)
	if err != nil {
		return 0, "", "", err
	}
	if size > 0 && size != rangeSize {
		return 0, "", "", fmt.Errorf("http: content size mismatch: head=%d range=%d", size, rangeSize)
	}
	if etag == "" {
		etag = rangeETag
	}
	if lastModified == "" {
		lastModified = rangeLastModified
	}
	return rangeSize, etag, lastModified, nil
}

// rangeProbe requests the first byte to learn the total size from
// Content-Range. A 200 answer means ranges are ignored; its Content-Length
// is used instead.
func (f *Fetcher) rangeProbe(ctx context.Context) (size int64, etag, lastModified string, err error) {
	resp, err := f.rangeRequest(ctx, 0, 0, false)
	if err != nil {
		return 0, "", "", err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
		crange := resp.Header.Get("Content-Range")
		if crange == "" {
			return 0, "", "", errors.New("http: range probe missing Content-Range")
		}
		_, size, err = parseContentRange(crange)
		if err != nil {
			return 0, "", "", err
		}
	case nethttp.StatusOK:
		if resp.ContentLength < 0 {
			return 0, "", "", errors.New("http: range requests not supported and size unknown")
		}
		size = resp.ContentLength
	default:
		return 0, "", "", &StatusError{Op: "range probe", Status: resp.Status, Code: resp.StatusCode}
	}
	return size, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), nil
}

func (f *Fetcher) doHead(ctx context.Context) (*nethttp.Response, error) {
	req, err := f.newRequest(ctx, nethttp.MethodHead, false)
	if err != nil {
		return nil, err
	}
	return f.client.Do(req)
}

// newRequest creates an HTTP request with configured headers and optional conditional headers.
func (f *Fetcher) newRequest(ctx context.Context, method string, withConditions bool) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(ctx, method, f.url, nethttp.NoBody)
	if err != nil {
		return nil, err
	}
	for key, values := range f.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	if method == nethttp.MethodGet && withConditions && f.useConditionalHeaders {
		if f.etag != "" && req.Header.Get("If-Match") == "" {
			req.Header.Set("If-Match", f.etag)
		}
		if f.lastModified != "" && req.Header.Get("If-Unmodified-Since") == "" {
			req.Header.Set("If-Unmodified-Since", f.lastModified)
		}
	}
	return req, nil
}

// rangeRequest performs a GET request for the inclusive byte range [off, end].
func (f *Fetcher) rangeRequest(ctx context.Context, off, end int64, withConditions bool) (*nethttp.Response, error) {
	req, err := f.newRequest(ctx, nethttp.MethodGet, withConditions)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))
	return f.client.Do(req)
}

// hasConditionalHeaders reports whether conditional headers are enabled and available.
func (f *Fetcher) hasConditionalHeaders() bool {
	if !f.useConditionalHeaders {
		return false
	}
	return f.etag != "" || f.lastModified != ""
}

// parseContentRange parses a Content-Range header value of the form
// "bytes start-end/size" and returns the start and size.
func parseContentRange(value string) (start, size int64, err error) {
	value = strings.TrimSpace(value)
	bad := fmt.Errorf("http: invalid Content-Range %q", value)
	spec, ok := strings.CutPrefix(value, "bytes ")
	if !ok {
		return 0, 0, bad
	}
	span, total, ok := strings.Cut(spec, "/")
	if !ok || total == "*" {
		return 0, 0, bad
	}
	first, _, ok := strings.Cut(span, "-")
	if !ok {
		return 0, 0, bad
	}
	start, err = strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, bad
	}
	size, err = strconv.ParseInt(total, 10, 64)
	if err != nil || size < 0 {
		return 0, 0, bad
	}
	return start, size, nil
}

var _ remote.Fetcher = (*Fetcher)(nil)
