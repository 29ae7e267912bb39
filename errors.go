package ijstack

import (
	"errors"
	"fmt"
)

var (
	ErrByteOrder       = errors.New("invalid byte order")
	ErrCorruptMetadata = errors.New("corrupt ImageJ metadata")
	ErrPattern         = errors.New("invalid output pattern")
	ErrSeriesSpec      = errors.New("invalid series specification")
	ErrPixelType       = errors.New("unsupported pixel type")
	ErrPlaneShape      = errors.New("plane does not match series geometry")
	ErrPlaneCount      = errors.New("unexpected number of hyperstack planes")
	ErrNotFound        = errors.New("not found")
)

// FieldError reports a metadata value whose shape does not fit its kind.
type FieldError struct {
	Kind   FieldKind
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("ImageJ metadata field %s: %s", e.Kind, e.Reason)
}
