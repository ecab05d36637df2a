package binfile

import (
	"context"
	"fmt"
)

// ByteSource is the minimal capability every typed accessor is built on.
//
// ByteAt returns the byte at off, where 0 <= off < Len().
type ByteSource interface {
	ByteAt(off int64) (byte, error)
	Len() int64
}

// BytesReader is implemented by sources that can return a run of bytes more
// efficiently than repeated ByteAt calls. The returned slice must not alias
// storage the source may later mutate.
type BytesReader interface {
	BytesAt(off, n int64) ([]byte, error)
}

// Loader is implemented by sources that can prefetch a byte range ahead of use.
//
// LoadRange blocks until the range is resident. LoadRangeAsync returns
// immediately and invokes fn once the range is resident or loading failed;
// when nothing needs loading fn is invoked before LoadRangeAsync returns.
type Loader interface {
	LoadRange(ctx context.Context, r Range) error
	LoadRangeAsync(ctx context.Context, r Range, fn func(error))
}

// Range is an inclusive byte range. Range{2, 5} covers bytes 2, 3, 4 and 5.
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of bytes covered by the range.
func (r Range) Len() int64 {
	return r.End - r.Start + 1
}

// Validate reports whether the range is well formed.
func (r Range) Validate() error {
	if r.Start < 0 || r.End < r.Start {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}

// ByteOrder selects how multi-byte integers are assembled.
type ByteOrder int

const (
	// LittleEndian treats the first byte as the least significant.
	LittleEndian ByteOrder = iota
	// BigEndian treats the first byte as the most significant.
	BigEndian
)

func (o ByteOrder) String() string {
	if o == BigEndian {
		return "big-endian"
	}
	return "little-endian"
}
