package seamkit

import (
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/seamkit/seamkit/imop"
)

// DefaultSeamColor is used by the debug overlay when no color is provided.
const DefaultSeamColor = "#ff0000"

// DrawSeams paints the seams over a copy of img with the given hex color.
// The blend mode is optional, see the imop package for the supported values.
func DrawSeams(img *image.NRGBA, seams []Seam, hexColor, blendMode string) (*image.NRGBA, error) {
	if hexColor == "" {
		hexColor = DefaultSeamColor
	}
	if !strings.HasPrefix(hexColor, "#") {
		hexColor = "#" + hexColor
	}
	col, err := colorful.Hex(hexColor)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid seam color %q", hexColor)
	}
	r, g, b := col.RGB255()

	var blend *imop.Blend
	if blendMode != "" {
		blend = imop.NewBlend()
		if err := blend.Set(blendMode); err != nil {
			return nil, err
		}
	}

	bounds := img.Bounds()
	layer := image.NewNRGBA(bounds)
	for _, seam := range seams {
		for _, p := range seam {
			pt := p.add(bounds.Min)
			if pt.In(bounds) {
				layer.SetNRGBA(pt.X, pt.Y, color.NRGBA{R: r, G: g, B: b, A: 0xff})
			}
		}
	}
	return imop.InitOp().Draw(layer, img, blend)
}

func (p Point) add(o image.Point) image.Point {
	return image.Pt(p.X+o.X, p.Y+o.Y)
}

// SeamTracer records the raster and the seam of the first reported step.
// Its Observe method can be used as Processor.OnStep.
type SeamTracer struct {
	mu    sync.Mutex
	img   *image.NRGBA
	seam  Seam
	steps int
}

// Observe records the step. Only the first step is kept.
func (t *SeamTracer) Observe(s Step) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.steps++
	if t.img != nil {
		return
	}
	t.img = imaging.Clone(s.Image)
	t.seam = append(Seam(nil), s.Seam...)
}

// Steps returns the number of observed seam operations.
func (t *SeamTracer) Steps() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.steps
}

// Overlay paints the recorded seam over the recorded raster.
func (t *SeamTracer) Overlay(hexColor string) (*image.NRGBA, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.img == nil {
		return nil, errors.New("no seam has been recorded")
	}
	return DrawSeams(t.img, []Seam{t.seam}, hexColor, "")
}
