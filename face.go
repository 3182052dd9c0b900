package seamkit

import (
	"image"
	"image/draw"
	"os"

	pigo "github.com/esimov/pigo/core"
	"github.com/pkg/errors"
)

// FaceDetector finds regions of an image which should survive the resize untouched.
type FaceDetector interface {
	Detect(img *image.NRGBA) []image.Rectangle
}

const cascadeHeaderSize = 16

// PigoDetector detects faces with the pigo cascade classifier.
type PigoDetector struct {
	classifier *pigo.Pigo

	// Angle is the plane rotation of the searched faces in the [0, 1] range.
	Angle        float64
	MinSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	// MinScore discards the detections with a lower confidence.
	MinScore float32
}

// NewPigoDetector unpacks a pigo cascade file.
func NewPigoDetector(cascade []byte) (*PigoDetector, error) {
	if len(cascade) == 0 {
		return nil, errors.New("empty cascade classifier")
	}
	// the header holds 8 reserved bytes, the tree depth and the tree count
	if len(cascade) < cascadeHeaderSize {
		return nil, errors.Errorf("cascade classifier too short: %d bytes", len(cascade))
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, errors.Wrap(err, "error unpacking the cascade file")
	}
	return &PigoDetector{
		classifier:   classifier,
		MinSize:      100,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinScore:     5.0,
	}, nil
}

// LoadPigoDetector reads the cascade classifier from path.
func LoadPigoDetector(path string) (*PigoDetector, error) {
	cascade, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read the cascade classifier")
	}
	return NewPigoDetector(cascade)
}

// Detect returns the bounding box of every face found in img.
func (d *PigoDetector) Detect(img *image.NRGBA) []image.Rectangle {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	pixels := luminance(img)

	maxSize := width
	if height > maxSize {
		maxSize = height
	}
	params := pigo.CascadeParams{
		MinSize:     d.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: d.ShiftFactor,
		ScaleFactor: d.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   height,
			Cols:   width,
			Dim:    width,
		},
	}

	// The result contains quadruplets representing the row, column, scale and detection score.
	dets := d.classifier.RunCascade(params, d.Angle)
	dets = d.classifier.ClusterDetections(dets, d.IoUThreshold)

	var faces []image.Rectangle
	for _, det := range dets {
		if det.Q < d.MinScore {
			continue
		}
		faces = append(faces, image.Rect(
			det.Col-det.Scale/2,
			det.Row-det.Scale/2,
			det.Col+det.Scale/2,
			det.Row+det.Scale/2,
		).Intersect(img.Bounds()))
	}
	return faces
}

// paintRegions marks the rectangles on the mask, allocating a mask of the
// given size when none exists yet.
func paintRegions(mask *image.NRGBA, bounds image.Rectangle, regions []image.Rectangle) *image.NRGBA {
	if len(regions) == 0 {
		return mask
	}
	if mask == nil {
		mask = image.NewNRGBA(bounds)
	}
	for _, r := range regions {
		draw.Draw(mask, r, &image.Uniform{C: image.White}, image.Point{}, draw.Src)
	}
	return mask
}
