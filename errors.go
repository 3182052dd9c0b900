package seamkit

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidInput is returned when the source bytes or raster cannot be used.
	ErrInvalidInput = errors.New("invalid input image")
	// ErrInvalidTarget is returned when a target dimension is not positive.
	ErrInvalidTarget = errors.New("invalid target dimension")
	// ErrUnsupportedGrowth is returned when the requested enlargement exceeds the growth limit.
	ErrUnsupportedGrowth = errors.New("unsupported growth")
	// ErrSeamMismatch is returned when a seam does not fit the raster it is applied to.
	ErrSeamMismatch = errors.New("seam does not match the raster")
	// ErrUnsupportedFormat is returned by the codec for unknown image formats.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Kind classifies an error returned by the package into a short stable name.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedFormat):
		return "invalid_input"
	case errors.Is(err, ErrInvalidTarget):
		return "invalid_target"
	case errors.Is(err, ErrUnsupportedGrowth):
		return "unsupported_growth"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "internal"
}
