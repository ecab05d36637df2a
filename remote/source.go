package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/binfile"
)

// BlockRange is an inclusive pair of block indices.
type BlockRange struct {
	Start int64
	End   int64
}

// Empty reports whether the range covers no blocks.
func (r BlockRange) Empty() bool {
	return r.Start > r.End
}

// block is the payload of one fetch response. It is shared by every block
// index the response covers and never mutated.
type block struct {
	start int64 // absolute offset of data[0]
	data  []byte
}

// call is an in-flight fetch. err is written before done is closed.
type call struct {
	done chan struct{}
	err  error
}

// Source is a demand-paged binfile.ByteSource over a remote resource.
// It is safe for concurrent use.
type Source struct {
	fetcher     Fetcher
	length      int64
	blockSize   int64
	blockRadius int64
	blockTotal  int64
	legacyEnd   bool
	timeout     time.Duration
	logger      *slog.Logger

	mu         sync.Mutex
	blocks     map[int64]*block // block index -> cached payload
	pending    map[int64]*call  // block index -> fetch that will fill it
	downloaded int64
}

// New creates a Source of length bytes served by fetcher.
func New(fetcher Fetcher, length int64, opts ...Option) (*Source, error) {
	if fetcher == nil {
		return nil, errors.New("remote: fetcher is nil")
	}
	if length < 1 {
		return nil, fmt.Errorf("remote: length must be >= 1, got %d", length)
	}
	s := &Source{
		fetcher:   fetcher,
		length:    length,
		blockSize: DefaultBlockSize,
		blocks:    make(map[int64]*block),
		pending:   make(map[int64]*call),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.blockSize <= 0 {
		return nil, fmt.Errorf("remote: block size must be > 0, got %d", s.blockSize)
	}
	if s.blockRadius < 0 {
		return nil, fmt.Errorf("remote: block radius must be >= 0, got %d", s.blockRadius)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.blockTotal = (length-1)/s.blockSize + 1
	return s, nil
}

// Len returns the resource length.
func (s *Source) Len() int64 {
	return s.length
}

// BlockSize returns the block size in bytes.
func (s *Source) BlockSize() int64 {
	return s.blockSize
}

// BlockTotal returns the number of blocks covering the resource.
func (s *Source) BlockTotal() int64 {
	return s.blockTotal
}

// DownloadedBytes returns the number of bytes accounted to completed fetches.
// A response reused for a wider block range is counted once.
func (s *Source) DownloadedBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloaded
}

// CachedBlocks returns the number of block indices currently cached.
func (s *Source) CachedBlocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks)
}

// BlockRange returns the blocks covering r widened by the block radius and
// clamped to the resource.
func (s *Source) BlockRange(r binfile.Range) BlockRange {
	start := r.Start/s.blockSize - s.blockRadius
	end := r.End/s.blockSize + s.blockRadius
	if s.legacyEnd {
		end++
	}
	if start < 0 {
		start = 0
	}
	if end >= s.blockTotal {
		end = s.blockTotal - 1
	}
	return BlockRange{Start: start, End: end}
}

// ByteAt returns the byte at off, fetching its block if needed.
// It has no context: unless WithFetchTimeout is set, a fetch is bounded only
// by the Fetcher itself. The http package's default client times out after
// http.DefaultTimeout.
func (s *Source) ByteAt(off int64) (byte, error) {
	ctx, cancel := s.syncContext()
	defer cancel()
	return s.ByteAtContext(ctx, off)
}

// ByteAtContext is ByteAt with a caller-supplied context for the fetch.
func (s *Source) ByteAtContext(ctx context.Context, off int64) (byte, error) {
	if off < 0 || off >= s.length {
		return 0, &binfile.RangeError{Op: "byte", Offset: off, Width: 1, Length: s.length}
	}
	if err := s.LoadRange(ctx, binfile.Range{Start: off, End: off}); err != nil {
		return 0, err
	}
	b, err := s.copyResident(off, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// BytesAt returns n bytes starting at off, loading them with a single fetch.
func (s *Source) BytesAt(off, n int64) ([]byte, error) {
	if off < 0 || n < 0 || off > s.length || n > s.length-off {
		return nil, &binfile.RangeError{Op: "bytes", Offset: off, Width: n, Length: s.length}
	}
	if n == 0 {
		return []byte{}, nil
	}
	ctx, cancel := s.syncContext()
	defer cancel()
	if err := s.LoadRange(ctx, binfile.Range{Start: off, End: off + n - 1}); err != nil {
		return nil, err
	}
	return s.copyResident(off, n)
}

// copyResident copies [off, off+n) out of the cache. Callers load the range
// first; a gap means the cache and the load bookkeeping disagree.
func (s *Source) copyResident(off, n int64) ([]byte, error) {
	out := make([]byte, n)
	s.mu.Lock()
	defer s.mu.Unlock()
	for pos := off; pos < off+n; {
		b := s.blocks[pos/s.blockSize]
		var copied int
		if b != nil && pos >= b.start {
			copied = copy(out[pos-off:], b.data[min(pos-b.start, int64(len(b.data))):])
		}
		if copied == 0 {
			return nil, fmt.Errorf("%w: byte %d", ErrNotResident, pos)
		}
		pos += int64(copied)
	}
	return out, nil
}

// LoadRange blocks until every byte of r is cached.
func (s *Source) LoadRange(ctx context.Context, r binfile.Range) error {
	br, err := s.blockRangeFor(r)
	if err != nil {
		return err
	}
	return s.ensureBlocksLoaded(ctx, s.plan(br), false)
}

// LoadRangeAsync loads r in the background and calls fn with the result.
// When r is already cached fn runs before LoadRangeAsync returns.
// fn may be nil.
func (s *Source) LoadRangeAsync(ctx context.Context, r binfile.Range, fn func(error)) {
	if fn == nil {
		fn = func(error) {}
	}
	br, err := s.blockRangeFor(r)
	if err != nil {
		fn(err)
		return
	}
	p := s.plan(br)
	if p.resident() {
		fn(nil)
		return
	}
	go func() {
		fn(s.ensureBlocksLoaded(ctx, p, true))
	}()
}

// LoadRanges loads several ranges concurrently and returns the first error.
func (s *Source) LoadRanges(ctx context.Context, ranges ...binfile.Range) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range ranges {
		g.Go(func() error {
			return s.LoadRange(gctx, r)
		})
	}
	return g.Wait()
}

// syncContext returns the context for loads started without one.
func (s *Source) syncContext() (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(context.Background(), s.timeout)
	}
	return context.WithCancel(context.Background())
}

func (s *Source) blockRangeFor(r binfile.Range) (BlockRange, error) {
	if err := r.Validate(); err != nil {
		return BlockRange{}, err
	}
	if r.End >= s.length {
		return BlockRange{}, fmt.Errorf("%w: range %s beyond length %d", binfile.ErrOutOfRange, r, s.length)
	}
	return s.BlockRange(r), nil
}

// loadPlan is the outcome of trimming a block range against the cache.
// At most one of fetch and waits is set; neither means nothing to do.
type loadPlan struct {
	blocks BlockRange
	fetch  *call
	waits  []*call
}

func (p loadPlan) resident() bool {
	return p.fetch == nil && len(p.waits) == 0
}

// plan trims cached blocks from both ends of br. If the remainder is fully
// covered by cached blocks and in-flight fetches the plan waits on those;
// otherwise it registers a new fetch for the remainder.
func (s *Source) plan(br BlockRange) loadPlan {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !br.Empty() && s.blocks[br.Start] != nil {
		br.Start++
	}
	for !br.Empty() && s.blocks[br.End] != nil {
		br.End--
	}
	if br.Empty() {
		return loadPlan{blocks: br}
	}

	var waits []*call
	seen := make(map[*call]bool)
	covered := true
	for i := br.Start; i <= br.End; i++ {
		if s.blocks[i] != nil {
			continue
		}
		c := s.pending[i]
		if c == nil {
			covered = false
			break
		}
		if !seen[c] {
			seen[c] = true
			waits = append(waits, c)
		}
	}
	if covered {
		return loadPlan{blocks: br, waits: waits}
	}

	c := &call{done: make(chan struct{})}
	for i := br.Start; i <= br.End; i++ {
		if s.blocks[i] == nil {
			s.pending[i] = c
		}
	}
	return loadPlan{blocks: br, fetch: c}
}

// ensureBlocksLoaded carries out p: it either issues the planned fetch or
// waits for the in-flight fetches it depends on.
func (s *Source) ensureBlocksLoaded(ctx context.Context, p loadPlan, async bool) error {
	if p.fetch != nil {
		return s.fetch(ctx, p.fetch, p.blocks, async)
	}
	for _, c := range p.waits {
		select {
		case <-c.done:
			if c.err != nil {
				return c.err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Source) fetch(ctx context.Context, c *call, br BlockRange, async bool) error {
	req := Request{
		Range: binfile.Range{Start: br.Start * s.blockSize, End: (br.End+1)*s.blockSize - 1},
		Unit:  UnitBytes,
		Async: async,
	}
	s.logger.Debug("fetching range",
		slog.Int64("start", req.Range.Start),
		slog.Int64("end", req.Range.End),
		slog.Int64("blocks", br.End-br.Start+1),
		slog.Bool("async", async))

	resp, err := s.fetcher.Fetch(ctx, req)
	if err == nil {
		err = s.checkResponse(req, resp)
	}

	s.mu.Lock()
	if err != nil {
		s.clearPending(c, br)
		s.mu.Unlock()

		c.err = &FetchError{Range: req.Range, Err: err}
		close(c.done)
		s.logger.Warn("fetch failed",
			slog.Int64("start", req.Range.Start),
			slog.Int64("end", req.Range.End),
			slog.Any("error", err))
		return c.err
	}

	blocks, byteRange := br, req.Range
	if resp.Size() == s.length {
		// The transport ignored the range and sent everything.
		blocks = BlockRange{Start: 0, End: s.blockTotal - 1}
		byteRange = binfile.Range{Start: 0, End: s.length - 1}
	}
	b := &block{start: byteRange.Start, data: resp.Data}
	for i := blocks.Start; i <= blocks.End; i++ {
		s.blocks[i] = b
	}
	s.downloaded += byteRange.Len()
	s.clearPending(c, br)
	s.mu.Unlock()

	close(c.done)
	s.logger.Debug("fetched range",
		slog.Int64("start", byteRange.Start),
		slog.Int64("end", byteRange.End),
		slog.Int64("bytes", resp.Size()),
		slog.Bool("async", async))
	return nil
}

func (s *Source) checkResponse(req Request, resp *Response) error {
	if resp == nil {
		return fmt.Errorf("%w: nil response", ErrShortResponse)
	}
	if resp.Size() == s.length {
		return nil
	}
	want := min(req.Range.End, s.length-1) - req.Range.Start + 1
	if resp.Size() < want {
		return fmt.Errorf("%w: got %d bytes, want %d: %w", ErrShortResponse, resp.Size(), want, io.ErrUnexpectedEOF)
	}
	if resp.Size() > req.Range.Len() {
		return fmt.Errorf("%w: got %d bytes for %s", ErrLongResponse, resp.Size(), req.Range)
	}
	return nil
}

// clearPending drops pending marks in br that still point at c. Must be
// called with s.mu held.
func (s *Source) clearPending(c *call, br BlockRange) {
	for i := br.Start; i <= br.End; i++ {
		if s.pending[i] == c {
			delete(s.pending, i)
		}
	}
}

var _ binfile.ByteSource = (*Source)(nil)
var _ binfile.BytesReader = (*Source)(nil)
var _ binfile.Loader = (*Source)(nil)
