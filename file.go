package binfile

import (
	"errors"
	"os"

	"github.com/edsrzf/mmap-go"
)

// File is a read-only, memory-mapped local file exposed as a Buffer.
type File struct {
	*Buffer
	f *os.File
	m mmap.MMap
}

// OpenFile maps the file at path into memory. The returned File must be
// closed to release the mapping; byte slices obtained from it stay valid
// because reads copy.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path) //nolint:gosec // path is supplied by the caller
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		// mmap rejects empty files.
		f.Close()
		buf, err := NewBuffer(nil)
		if err != nil {
			return nil, err
		}
		return &File{Buffer: buf}, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	buf, err := NewBuffer(m)
	if err != nil {
		_ = m.Unmap()
		f.Close()
		return nil, err
	}
	return &File{Buffer: buf, f: f, m: m}, nil
}

// Close unmaps and closes the file.
func (f *File) Close() error {
	var errs []error
	if f.m != nil {
		f.Buffer.mu.Lock()
		err := f.m.Unmap()
		f.m = nil
		f.Buffer.data = nil
		f.Buffer.length = 0
		f.Buffer.offset = 0
		f.Buffer.mu.Unlock()
		errs = append(errs, err)
	}
	if f.f != nil {
		errs = append(errs, f.f.Close())
		f.f = nil
	}
	return errors.Join(errs...)
}
