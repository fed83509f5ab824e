package compose

import "errors"

var (
	// ErrDecode is returned when an image cannot be decoded.
	ErrDecode = errors.New("decode failed")

	// ErrDecodeTimeout is returned when a decode does not finish before its context is done.
	ErrDecodeTimeout = errors.New("decode timed out")

	// ErrTooLarge is returned when an encoded image declares more pixels than allowed.
	ErrTooLarge = errors.New("image too large")

	// ErrSurface is returned when an export canvas cannot be allocated.
	ErrSurface = errors.New("cannot allocate surface")
)
