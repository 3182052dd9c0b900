// Package imop implements the Porter-Duff composition operations used for
// mixing a graphic element with its backdrop, with an optional blend mode.
// The image/draw package only provides the source-over-destination and the
// source operators.
//
// It is used to paint the debug seam overlay over the carved image.
package imop

import (
	"image"

	"github.com/pkg/errors"
	"github.com/seamkit/seamkit/utils"
)

// The supported composition operations.
const (
	Copy    = "copy"
	SrcOver = "src_over"
	DstOver = "dst_over"
	SrcIn   = "src_in"
	DstIn   = "dst_in"
	SrcOut  = "src_out"
	DstOut  = "dst_out"
	SrcAtop = "src_atop"
	DstAtop = "dst_atop"
	Xor     = "xor"
)

var compositeOps = []string{Copy, SrcOver, DstOver, SrcIn, DstIn, SrcOut, DstOut, SrcAtop, DstAtop, Xor}

// Composite holds the currently active composition operation.
type Composite struct {
	current string
}

// InitOp returns a Composite using the source-over operation.
func InitOp() *Composite {
	return &Composite{current: SrcOver}
}

// Set activates one of the supported composition operations.
func (op *Composite) Set(cop string) error {
	if !utils.Contains(compositeOps, cop) {
		return errors.Errorf("unsupported composite operation: %q", cop)
	}
	op.current = cop
	return nil
}

// Get returns the active composition operation.
func (op *Composite) Get() string {
	return op.current
}

// factors returns the Porter-Duff fractions of the source and the backdrop.
func (op *Composite) factors(as, ab float64) (fa, fb float64) {
	switch op.current {
	case Copy:
		return 1, 0
	case DstOver:
		return 1 - ab, 1
	case SrcIn:
		return ab, 0
	case DstIn:
		return 0, as
	case SrcOut:
		return 1 - ab, 0
	case DstOut:
		return 0, 1 - as
	case SrcAtop:
		return ab, 1 - as
	case DstAtop:
		return 1 - ab, as
	case Xor:
		return 1 - ab, 1 - as
	}
	return 1, 1 - as
}

// Draw composites src over dst and returns the result as a new image.
// Both images must have the same bounds. The blend mode is optional.
func (op *Composite) Draw(src, dst *image.NRGBA, blend *Blend) (*image.NRGBA, error) {
	if src.Bounds() != dst.Bounds() {
		return nil, errors.Errorf("source %v and backdrop %v bounds differ", src.Bounds(), dst.Bounds())
	}
	bounds := dst.Bounds()
	out := image.NewNRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			si, di, oi := src.PixOffset(x, y), dst.PixOffset(x, y), out.PixOffset(x, y)

			as := float64(src.Pix[si+3]) / 255
			ab := float64(dst.Pix[di+3]) / 255
			fa, fb := op.factors(as, ab)

			ao := fa*as + fb*ab
			if ao == 0 {
				continue
			}
			for c := 0; c < 3; c++ {
				cs := float64(src.Pix[si+c]) / 255
				cb := float64(dst.Pix[di+c]) / 255
				if blend != nil && blend.OpType != "" {
					cs = (1-ab)*cs + ab*blend.apply(cs, cb)
				}
				co := (fa*as*cs + fb*ab*cb) / ao
				out.Pix[oi+c] = uint8(co*255 + 0.5)
			}
			out.Pix[oi+3] = uint8(ao*255 + 0.5)
		}
	}
	return out, nil
}
