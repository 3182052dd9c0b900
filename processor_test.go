package seamkit

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// columnMask marks the columns in the [from, to) range of a width x height mask.
func columnMask(width, height, from, to int) *image.NRGBA {
	mask := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(mask, image.Rect(from, 0, to, height), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return mask
}

type fakeDetector struct {
	faces []image.Rectangle
	calls int
}

func (d *fakeDetector) Detect(img *image.NRGBA) []image.Rectangle {
	d.calls++
	return d.faces
}

func TestResize_NoOp(t *testing.T) {
	img := columnImage(imgWidth, imgHeight)
	p := &Processor{NewWidth: imgWidth, NewHeight: imgHeight}

	var steps int
	p.OnStep = func(Step) { steps++ }

	res, err := p.Resize(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), res.Bounds())
	assert.Equal(t, img.Pix, res.Pix)
	assert.Zero(t, steps)

	// the result never aliases the source
	res.Pix[0] = 0xaa
	assert.NotEqual(t, img.Pix[0], res.Pix[0])
}

func TestResize_ShrinkImage(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"width", imgWidth / 2, imgHeight},
		{"height", imgWidth, imgHeight / 2},
		{"both", 6, 7},
		{"single pixel", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := columnImage(imgWidth, imgHeight)
			p := &Processor{NewWidth: tt.width, NewHeight: tt.height}

			res, err := p.Resize(context.Background(), img)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, tt.width, tt.height), res.Bounds())
			// the source is left untouched
			assert.Equal(t, image.Rect(0, 0, imgWidth, imgHeight), img.Bounds())
		})
	}
}

func TestResize_WidthIsCarvedBeforeHeight(t *testing.T) {
	p := &Processor{NewWidth: 6, NewHeight: 7}

	var axes []Axis
	p.OnStep = func(s Step) {
		axes = append(axes, s.Axis)
		assert.False(t, s.Insert)
		assert.True(t, s.Seam.Valid(s.Image.Bounds().Dx(), s.Image.Bounds().Dy(), s.Axis))
	}

	_, err := p.Resize(context.Background(), columnImage(imgWidth, imgHeight))
	require.NoError(t, err)
	assert.Equal(t, []Axis{Vertical, Vertical, Vertical, Vertical, Horizontal, Horizontal, Horizontal}, axes)
}

func TestResize_GrowthUnsupported(t *testing.T) {
	img := columnImage(imgWidth, imgHeight)
	orig := append([]uint8(nil), img.Pix...)
	p := &Processor{NewWidth: imgWidth + 2, NewHeight: imgHeight}

	res, err := p.Resize(context.Background(), img)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrUnsupportedGrowth)
	assert.Equal(t, "unsupported_growth", Kind(err))
	assert.Equal(t, orig, img.Pix)
}

func TestResize_GrowthWithinLimit(t *testing.T) {
	img := columnImage(imgWidth, imgHeight)
	p := &Processor{NewWidth: 15, NewHeight: 12, GrowthLimit: 0.5}

	var inserted int
	p.OnStep = func(s Step) {
		if s.Insert {
			inserted++
		}
	}
	res, err := p.Resize(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 15, 12), res.Bounds())
	assert.Equal(t, 7, inserted)

	p.NewWidth = 16
	_, err = p.Resize(context.Background(), img)
	assert.ErrorIs(t, err, ErrUnsupportedGrowth)
}

func TestResize_GrowAndShrink(t *testing.T) {
	p := &Processor{NewWidth: 13, NewHeight: 8, GrowthLimit: 1}

	res, err := p.Resize(context.Background(), columnImage(imgWidth, imgHeight))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 13, 8), res.Bounds())
}

func TestResize_InvalidTarget(t *testing.T) {
	img := columnImage(1, 5)

	var steps int
	p := &Processor{NewWidth: 0, NewHeight: 5, OnStep: func(Step) { steps++ }}
	_, err := p.Resize(context.Background(), img)
	assert.ErrorIs(t, err, ErrInvalidTarget)
	assert.Equal(t, "invalid_target", Kind(err))
	assert.Zero(t, steps)

	p = &Processor{NewWidth: 1, NewHeight: -3}
	_, err = p.Resize(context.Background(), img)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestResize_InvalidInput(t *testing.T) {
	p := &Processor{NewWidth: 2, NewHeight: 2}

	_, err := p.Resize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = p.Resize(context.Background(), image.NewNRGBA(image.Rect(0, 0, 0, 4)))
	assert.ErrorIs(t, err, ErrInvalidInput)

	p.ProtectMask = image.NewNRGBA(image.Rect(0, 0, 3, 3))
	_, err = p.Resize(context.Background(), columnImage(4, 4))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestResize_MaskSizeReportedInOrder(t *testing.T) {
	p := &Processor{
		NewWidth:    2,
		NewHeight:   2,
		ProtectMask: image.NewNRGBA(image.Rect(0, 0, 3, 3)),
		RemoveMask:  image.NewNRGBA(image.Rect(0, 0, 5, 5)),
	}
	for i := 0; i < 20; i++ {
		_, err := p.Resize(context.Background(), columnImage(4, 4))
		require.ErrorIs(t, err, ErrInvalidInput)
		assert.Contains(t, err.Error(), "the protect mask")
	}

	p.ProtectMask = nil
	_, err := p.Resize(context.Background(), columnImage(4, 4))
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "the remove mask")
}

func TestResize_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Processor{NewWidth: 5, NewHeight: 5}
	res, err := p.Resize(ctx, columnImage(imgWidth, imgHeight))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "canceled", Kind(err))
}

func TestResize_CanceledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var steps int
	p := &Processor{NewWidth: 5, NewHeight: 5}
	p.OnStep = func(Step) {
		steps++
		if steps == 3 {
			cancel()
		}
	}
	res, err := p.Resize(ctx, columnImage(imgWidth, imgHeight))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, steps)
}

func TestResize_RemoveMask(t *testing.T) {
	img := columnImage(imgWidth, imgHeight)
	p := &Processor{
		NewWidth:   imgWidth - 1,
		NewHeight:  imgHeight,
		RemoveMask: columnMask(imgWidth, imgHeight, 7, 8),
	}

	res, err := p.Resize(context.Background(), img)
	require.NoError(t, err)
	for y := 0; y < imgHeight; y++ {
		assert.Equal(t, []uint8{0, 1, 2, 3, 4, 5, 6, 8, 9}, redRow(res, y))
	}
}

func TestResize_ProtectMask(t *testing.T) {
	// without a mask the first column is removed
	p := &Processor{NewWidth: imgWidth - 1, NewHeight: imgHeight}
	res, err := p.Resize(context.Background(), columnImage(imgWidth, imgHeight))
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9}, redRow(res, 0))

	p.ProtectMask = columnMask(imgWidth, imgHeight, 0, 5)
	res, err = p.Resize(context.Background(), columnImage(imgWidth, imgHeight))
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 1, 2, 3, 4, 5, 6, 7, 8}, redRow(res, 0))
	// the caller's mask is not carved
	assert.Equal(t, imgWidth, p.ProtectMask.Bounds().Dx())
}

func TestResize_FaceDetector(t *testing.T) {
	det := &fakeDetector{faces: []image.Rectangle{image.Rect(0, 0, 5, imgHeight)}}
	p := &Processor{NewWidth: imgWidth - 2, NewHeight: imgHeight, FaceDetector: det}

	res, err := p.Resize(context.Background(), columnImage(imgWidth, imgHeight))
	require.NoError(t, err)
	assert.Equal(t, 1, det.calls)
	assert.Equal(t, []uint8{0, 1, 2, 3, 4}, redRow(res, 0)[:5])
}

func TestResize_Prescale(t *testing.T) {
	p := &Processor{NewWidth: 10, NewHeight: 8, Scale: true}

	var sizes []image.Point
	p.OnStep = func(s Step) {
		assert.Equal(t, Vertical, s.Axis)
		sizes = append(sizes, s.Image.Bounds().Size())
	}

	res, err := p.Resize(context.Background(), columnImage(20, 10))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 8), res.Bounds())

	// the image is scaled to 16x8 first, only the width needs carving
	require.Len(t, sizes, 6)
	assert.Equal(t, image.Pt(16, 8), sizes[0])
}

func TestResize_DebugLogging(t *testing.T) {
	var buf bytes.Buffer
	p := &Processor{
		NewWidth:  imgWidth - 2,
		NewHeight: imgHeight,
		Debug:     true,
		Logger:    log.New(&buf, "", 0),
	}

	_, err := p.Resize(context.Background(), columnImage(imgWidth, imgHeight))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "vertical seam 1/2 on 10x10")
	assert.Contains(t, buf.String(), "vertical seam 2/2 on 9x10")
}

func TestResize_SeamTracer(t *testing.T) {
	tracer := &SeamTracer{}
	p := &Processor{NewWidth: imgWidth - 3, NewHeight: imgHeight, OnStep: tracer.Observe}

	_, err := p.Resize(context.Background(), columnImage(imgWidth, imgHeight))
	require.NoError(t, err)
	assert.Equal(t, 3, tracer.Steps())

	overlay, err := tracer.Overlay("#00ff00")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, imgWidth, imgHeight), overlay.Bounds())
	// the first seam runs along the first column
	for y := 0; y < imgHeight; y++ {
		assert.Equal(t, color.NRGBA{G: 0xff, A: 0xff}, overlay.NRGBAAt(0, y))
	}
}

func TestProcess_RejectsZeroDimension(t *testing.T) {
	var src bytes.Buffer
	require.NoError(t, DefaultCodec.Encode(&src, columnImage(8, 6), PNG))

	p := &Processor{NewWidth: 6}
	var out bytes.Buffer
	err := p.Process(context.Background(), &src, &out, DefaultCodec, "")
	assert.ErrorIs(t, err, ErrInvalidTarget)
	assert.Zero(t, out.Len())
}

func TestProcess_FitSource(t *testing.T) {
	var src bytes.Buffer
	require.NoError(t, DefaultCodec.Encode(&src, columnImage(8, 6), PNG))

	p := &Processor{NewWidth: 6}
	fit := p.FitSource(image.Rect(0, 0, 8, 6))
	assert.Equal(t, 6, fit.NewWidth)
	assert.Equal(t, 6, fit.NewHeight)
	// the processor itself is not modified
	assert.Zero(t, p.NewHeight)

	var out bytes.Buffer
	require.NoError(t, fit.Process(context.Background(), &src, &out, DefaultCodec, ""))
	res, format, err := DefaultCodec.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, PNG, format)
	assert.Equal(t, image.Rect(0, 0, 6, 6), res.Bounds())
}

func BenchmarkResize(b *testing.B) {
	img := columnImage(128, 128)
	p := &Processor{NewWidth: 100, NewHeight: 100}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Resize(context.Background(), img); err != nil {
			b.Fatal(err)
		}
	}
}
