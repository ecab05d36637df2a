package binfile

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
)

// Buffer is a ByteSource over a byte slice that is fully resident in memory.
// It is safe for concurrent use.
type Buffer struct {
	mu     sync.RWMutex
	data   []byte // complete underlying slice
	offset int64  // bias applied to every offset
	length int64  // addressable bytes starting at offset
}

// NewBuffer creates a Buffer over data. The slice is not copied and must not
// be modified while the Buffer is in use.
func NewBuffer(data []byte, opts ...BufferOption) (*Buffer, error) {
	var cfg bufferConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	size := int64(len(data))
	if cfg.offset < 0 || cfg.offset > size {
		return nil, fmt.Errorf("binfile: data offset %d outside buffer of %d bytes", cfg.offset, size)
	}
	length := size - cfg.offset
	if cfg.lengthSet {
		if cfg.length < 0 || cfg.length > length {
			return nil, fmt.Errorf("binfile: data length %d exceeds %d bytes available at offset %d", cfg.length, length, cfg.offset)
		}
		length = cfg.length
	}
	return &Buffer{data: data, offset: cfg.offset, length: length}, nil
}

// ByteAt returns the byte at off.
func (b *Buffer) ByteAt(off int64) (byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if off < 0 || off >= b.length {
		return 0, &RangeError{Op: "byte", Offset: off, Width: 1, Length: b.length}
	}
	return b.data[b.offset+off], nil
}

// BytesAt returns a copy of n bytes starting at off.
func (b *Buffer) BytesAt(off, n int64) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if off < 0 || n < 0 || off > b.length || n > b.length-off {
		return nil, &RangeError{Op: "bytes", Offset: off, Width: n, Length: b.length}
	}
	out := make([]byte, n)
	copy(out, b.data[b.offset+off:])
	return out, nil
}

// Len returns the number of addressable bytes.
func (b *Buffer) Len() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.length
}

// LoadRange validates r and returns; all data is already resident.
func (b *Buffer) LoadRange(_ context.Context, r Range) error {
	return r.Validate()
}

// LoadRangeAsync invokes fn before returning; all data is already resident.
func (b *Buffer) LoadRangeAsync(ctx context.Context, r Range, fn func(error)) {
	err := b.LoadRange(ctx, r)
	if fn != nil {
		fn(err)
	}
}

// Base64 encodes the complete underlying slice, ignoring any offset or length view.
func (b *Buffer) Base64() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return base64.StdEncoding.EncodeToString(b.data)
}

// LoadBase64 replaces the buffer contents with the decoded string and resets
// the view to cover all of it. On error the buffer is unchanged.
func (b *Buffer) LoadBase64(s string) error {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("binfile: decode base64: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = data
	b.offset = 0
	b.length = int64(len(data))
	return nil
}

type base64Codec interface {
	Base64() string
	LoadBase64(s string) error
}

// ToBase64 encodes src when it is a complete in-memory buffer.
// Other sources return ErrUnsupported.
func ToBase64(src ByteSource) (string, error) {
	c, ok := src.(base64Codec)
	if !ok {
		return "", fmt.Errorf("%w: base64 encode of %T", ErrUnsupported, src)
	}
	return c.Base64(), nil
}

// LoadBase64 replaces the contents of src when it is an in-memory buffer.
// Other sources return ErrUnsupported.
func LoadBase64(src ByteSource, s string) error {
	c, ok := src.(base64Codec)
	if !ok {
		return fmt.Errorf("%w: base64 decode into %T", ErrUnsupported, src)
	}
	return c.LoadBase64(s)
}
