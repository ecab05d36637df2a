package binfile

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned when a field does not fit inside the source.
	ErrOutOfRange = errors.New("binfile: offset out of range")

	// ErrUnsupported is returned when an operation is not available for a source,
	// for example base64 conversion of a source that is not a complete in-memory buffer.
	ErrUnsupported = errors.New("binfile: operation not supported by source")

	// ErrInvalidRange is returned when a range has End < Start or a negative Start.
	ErrInvalidRange = errors.New("binfile: invalid range")
)

// RangeError reports a field access outside of a source's bounds.
type RangeError struct {
	Op     string // accessor that failed, e.g. "uint32"
	Offset int64  // requested offset
	Width  int64  // field width in bytes
	Length int64  // source length
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("binfile: %s at %d (width %d) outside source of length %d", e.Op, e.Offset, e.Width, e.Length)
}

// Unwrap returns ErrOutOfRange so callers can use errors.Is.
func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

func checkBounds(src ByteSource, op string, off, width int64) error {
	n := src.Len()
	if off < 0 || width < 0 || off > n || width > n-off {
		return &RangeError{Op: op, Offset: off, Width: width, Length: n}
	}
	return nil
}
