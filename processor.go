package seamkit

import (
	"context"
	"image"
	"image/color"
	"log"
	"math"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/seamkit/seamkit/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var _ SeamCarver = (*Processor)(nil)

// SeamCarver resizes a decoded image to the configured dimensions.
type SeamCarver interface {
	Resize(ctx context.Context, img image.Image) (*image.NRGBA, error)
}

// Step describes a single seam operation reported to Processor.OnStep.
// Image is the raster right before the seam is applied and is only valid
// for the duration of the callback.
type Step struct {
	Axis   Axis
	Index  int
	Total  int
	Insert bool
	Image  *image.NRGBA
	Seam   Seam
}

// Processor options
type Processor struct {
	NewWidth  int
	NewHeight int
	// GrowthLimit is the largest fraction of a source dimension which can be
	// inserted on that axis. Zero disables enlargement.
	GrowthLimit    float64
	EnergyMode     EnergyMode
	SobelThreshold int
	BlurRadius     int
	ProtectMask    *image.NRGBA
	RemoveMask     *image.NRGBA
	FaceDetector   FaceDetector
	// Scale downsizes the image proportionally before carving when both axes shrink.
	Scale  bool
	Debug  bool
	Logger *log.Logger
	OnStep func(Step)
}

// job holds the state owned by a single Resize call.
type job struct {
	p       *Processor
	img     *image.NRGBA
	protect *image.NRGBA
	remove  *image.NRGBA
}

// Resize carves the image until it matches NewWidth x NewHeight. The width is
// processed first, then the height. The source image is never modified.
func (p *Processor) Resize(ctx context.Context, src image.Image) (*image.NRGBA, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, errors.Wrap(ErrInvalidInput, "the image has no pixels")
	}
	if p.NewWidth <= 0 || p.NewHeight <= 0 {
		return nil, errors.Wrapf(ErrInvalidTarget, "target size %dx%d", p.NewWidth, p.NewHeight)
	}
	bounds := src.Bounds()
	if err := p.checkGrowth("width", bounds.Dx(), p.NewWidth); err != nil {
		return nil, err
	}
	if err := p.checkGrowth("height", bounds.Dy(), p.NewHeight); err != nil {
		return nil, err
	}
	masks := []struct {
		name string
		mask *image.NRGBA
	}{
		{"protect", p.ProtectMask},
		{"remove", p.RemoveMask},
	}
	for _, m := range masks {
		if m.mask != nil && m.mask.Bounds().Size() != bounds.Size() {
			return nil, errors.Wrapf(ErrInvalidInput, "the %s mask is %v, the image is %v",
				m.name, m.mask.Bounds().Size(), bounds.Size())
		}
	}

	j := &job{p: p, img: imaging.Clone(src)}
	if p.ProtectMask != nil {
		j.protect = imaging.Clone(p.ProtectMask)
	}
	if p.RemoveMask != nil {
		j.remove = imaging.Clone(p.RemoveMask)
	}
	if p.FaceDetector != nil {
		faces := p.FaceDetector.Detect(j.img)
		p.logf("detected %d face(s)", len(faces))
		j.protect = paintRegions(j.protect, j.img.Bounds(), faces)
	}
	if p.Scale {
		j.prescale()
	}

	if err := j.carve(ctx, Vertical, p.NewWidth); err != nil {
		return nil, err
	}
	if err := j.carve(ctx, Horizontal, p.NewHeight); err != nil {
		return nil, err
	}
	return j.img, nil
}

func (p *Processor) checkGrowth(name string, size, target int) error {
	if target <= size {
		return nil
	}
	limit := int(math.Floor(p.GrowthLimit * float64(size)))
	if target-size > limit {
		return errors.Wrapf(ErrUnsupportedGrowth, "%s %d -> %d exceeds the limit of %d inserted seams",
			name, size, target, limit)
	}
	return nil
}

func (p *Processor) logf(format string, v ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, v...)
	}
}

// prescale shrinks the image by the smaller scale factor, so that one axis
// reaches its target and only the other one needs seam carving.
func (j *job) prescale() {
	w, h := j.img.Bounds().Dx(), j.img.Bounds().Dy()
	nw, nh := j.p.NewWidth, j.p.NewHeight
	if nw >= w || nh >= h {
		return
	}
	ratio := math.Max(float64(nw)/float64(w), float64(nh)/float64(h))
	sw := utils.Max(int(math.Round(float64(w)*ratio)), nw)
	sh := utils.Max(int(math.Round(float64(h)*ratio)), nh)

	j.p.logf("prescale %dx%d -> %dx%d", w, h, sw, sh)
	j.img = imaging.Resize(j.img, sw, sh, imaging.Lanczos)
	if j.protect != nil {
		j.protect = imaging.Resize(j.protect, sw, sh, imaging.NearestNeighbor)
	}
	if j.remove != nil {
		j.remove = imaging.Resize(j.remove, sw, sh, imaging.NearestNeighbor)
	}
}

func (j *job) size(axis Axis) int {
	if axis == Horizontal {
		return j.img.Bounds().Dy()
	}
	return j.img.Bounds().Dx()
}

// carve removes or inserts seams along the axis until the image size on that axis equals target.
// Every iteration recomputes the energy map from scratch.
func (j *job) carve(ctx context.Context, axis Axis, target int) error {
	var (
		size   = j.size(axis)
		total  = utils.Abs(target - size)
		insert = target > size
		// grown marks the seams inserted so far, keeping the next ones away from them.
		grown *image.NRGBA
	)

	for step := 0; step < total; step++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "%s carving stopped after %d of %d seams", axis, step, total)
		}
		width, height := j.img.Bounds().Dx(), j.img.Bounds().Dy()

		em := ComputeEnergy(blur(j.img, j.p.BlurRadius), j.p.EnergyMode, float64(j.p.SobelThreshold))
		applyMasks(em, j.protect, j.remove)
		applyMasks(em, grown, nil)

		c := NewCarver(width, height)
		if _, err := c.ComputeSeams(em, axis); err != nil {
			return err
		}
		seam := c.FindLowestEnergySeams()

		if j.p.Debug {
			j.p.logf("%s seam %d/%d on %dx%d: cost %.2f, mean energy %.2f, max energy %.2f",
				axis, step+1, total, width, height, c.Cost(), stat.Mean(em.Data, nil), floats.Max(em.Data))
		}
		if j.p.OnStep != nil {
			j.p.OnStep(Step{Axis: axis, Index: step, Total: total, Insert: insert, Image: j.img, Seam: seam})
		}

		var err error
		if insert {
			grown, err = j.insertSeam(c, seam, grown)
		} else {
			err = j.removeSeam(c, seam)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (j *job) removeSeam(c *Carver, seam Seam) error {
	var err error
	if j.img, err = c.RemoveSeam(j.img, seam); err != nil {
		return err
	}
	if j.protect != nil {
		if j.protect, err = c.RemoveSeam(j.protect, seam); err != nil {
			return err
		}
	}
	if j.remove != nil {
		if j.remove, err = c.RemoveSeam(j.remove, seam); err != nil {
			return err
		}
	}
	return nil
}

func (j *job) insertSeam(c *Carver, seam Seam, grown *image.NRGBA) (*image.NRGBA, error) {
	var err error
	if j.img, err = c.AddSeam(j.img, seam); err != nil {
		return nil, err
	}
	if j.protect != nil {
		if j.protect, err = c.AddSeam(j.protect, seam); err != nil {
			return nil, err
		}
	}
	if j.remove != nil {
		if j.remove, err = c.AddSeam(j.remove, seam); err != nil {
			return nil, err
		}
	}

	if grown == nil {
		grown = image.NewNRGBA(j.img.Bounds())
	} else if grown, err = c.AddSeam(grown, seam); err != nil {
		return nil, err
	}
	for _, pt := range seam {
		next := image.Pt(pt.X+1, pt.Y)
		if c.Axis == Horizontal {
			next = image.Pt(pt.X, pt.Y+1)
		}
		grown.SetNRGBA(pt.X, pt.Y, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
		grown.SetNRGBA(next.X, next.Y, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	}
	return grown, nil
}
