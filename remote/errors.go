package remote

import (
	"errors"
	"fmt"

	"github.com/meigma/binfile"
)

var (
	// ErrFetch is returned when the transport fails to deliver a range.
	ErrFetch = errors.New("remote: fetch failed")

	// ErrShortResponse is returned when a response holds fewer bytes than the
	// part of the requested range that lies inside the resource.
	ErrShortResponse = errors.New("remote: short response")

	// ErrLongResponse is returned when a response holds more bytes than were
	// requested without being the whole resource. Its offsets cannot be
	// trusted, so nothing is cached.
	ErrLongResponse = errors.New("remote: response longer than requested range")

	// ErrNotResident is returned when bytes are missing from the cache right
	// after a load reported success. It indicates a bug, not a transport fault.
	ErrNotResident = errors.New("remote: loaded bytes not resident")
)

// FetchError reports a failed range fetch. It matches both ErrFetch and the
// transport error with errors.Is.
type FetchError struct {
	Range binfile.Range
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("remote: fetch bytes %s: %v", e.Range, e.Err)
}

// Unwrap returns ErrFetch and the underlying transport error.
func (e *FetchError) Unwrap() []error {
	return []error{ErrFetch, e.Err}
}
