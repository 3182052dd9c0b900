package seamkit

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verticalSeam(xs ...int) Seam {
	s := make(Seam, len(xs))
	for y, x := range xs {
		s[y] = Point{X: x, Y: y}
	}
	return s
}

func horizontalSeam(ys ...int) Seam {
	s := make(Seam, len(ys))
	for x, y := range ys {
		s[x] = Point{X: x, Y: y}
	}
	return s
}

func TestSeam_RemoveVerticalKeepsOrder(t *testing.T) {
	img := columnImage(5, 3)
	c := &Carver{Width: 5, Height: 3, Axis: Vertical}

	res, err := c.RemoveSeam(img, verticalSeam(2, 3, 4))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 4, 3), res.Bounds())
	assert.Equal(t, 16, res.Stride)

	expected := [][]uint8{
		{0, 1, 3, 4},
		{0, 1, 2, 4},
		{0, 1, 2, 3},
	}
	for y, row := range expected {
		for x, r := range row {
			assert.Equal(t, r, res.NRGBAAt(x, y).R, "pixel (%d,%d)", x, y)
			assert.Equal(t, uint8(y), res.NRGBAAt(x, y).G)
		}
	}
}

func TestSeam_RemoveHorizontalKeepsOrder(t *testing.T) {
	img := columnImage(3, 4)
	c := &Carver{Width: 3, Height: 4, Axis: Horizontal}

	res, err := c.RemoveSeam(img, horizontalSeam(0, 1, 2))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 3, 3), res.Bounds())

	expected := [][]uint8{
		{1, 2, 3},
		{0, 2, 3},
		{0, 1, 3},
	}
	for x, col := range expected {
		for y, g := range col {
			assert.Equal(t, g, res.NRGBAAt(x, y).G, "pixel (%d,%d)", x, y)
			assert.Equal(t, uint8(x), res.NRGBAAt(x, y).R)
		}
	}
}

func TestSeam_AddVerticalAveragesNeighbours(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 100), A: 0xff})
		}
	}
	c := &Carver{Width: 3, Height: 2, Axis: Vertical}

	res, err := c.AddSeam(img, verticalSeam(1, 2))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 4, 2), res.Bounds())

	// row 0: the new pixel sits between column 1 and 2
	assert.Equal(t, []uint8{0, 100, 150, 200}, redRow(res, 0))
	// row 1: the seam is on the border, the pixel is duplicated
	assert.Equal(t, []uint8{0, 100, 200, 200}, redRow(res, 1))
	// the source is left untouched
	assert.Equal(t, 3, img.Bounds().Dx())
}

func TestSeam_AddHorizontal(t *testing.T) {
	img := columnImage(2, 3)
	c := &Carver{Width: 2, Height: 3, Axis: Horizontal}

	res, err := c.AddSeam(img, horizontalSeam(1, 2))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 2, 4), res.Bounds())

	var col0, col1 []uint8
	for y := 0; y < 4; y++ {
		col0 = append(col0, res.NRGBAAt(0, y).G)
		col1 = append(col1, res.NRGBAAt(1, y).G)
	}
	assert.Equal(t, []uint8{0, 1, 1, 2}, col0) // (1+2)/2 rounds down
	assert.Equal(t, []uint8{0, 1, 2, 2}, col1)
}

func TestSeam_AddAndRemoveChangeOneColumn(t *testing.T) {
	img := columnImage(imgWidth, imgHeight)
	em := ComputeEnergy(img, GradientEnergy, 0)

	c := NewCarver(imgWidth, imgHeight)
	_, err := c.ComputeSeams(em, Vertical)
	require.NoError(t, err)
	seam := c.FindLowestEnergySeams()

	grown, err := c.AddSeam(img, seam)
	require.NoError(t, err)
	assert.Equal(t, imgWidth+1, grown.Bounds().Dx())

	shrunk, err := c.RemoveSeam(img, seam)
	require.NoError(t, err)
	assert.Equal(t, imgWidth-1, shrunk.Bounds().Dx())
	assert.Equal(t, imgHeight, shrunk.Bounds().Dy())
}

func TestSeam_Mismatch(t *testing.T) {
	img := columnImage(4, 4)
	c := &Carver{Width: 4, Height: 4, Axis: Vertical}

	_, err := c.RemoveSeam(img, verticalSeam(0, 1, 2))
	assert.ErrorIs(t, err, ErrSeamMismatch)

	_, err = c.AddSeam(img, verticalSeam(0, 2, 2, 2))
	assert.ErrorIs(t, err, ErrSeamMismatch)

	c.Axis = Horizontal
	_, err = c.RemoveSeam(img, horizontalSeam(0, 0, 0, 4))
	assert.ErrorIs(t, err, ErrSeamMismatch)
}

func TestSeam_SubImageIsNormalized(t *testing.T) {
	src := columnImage(6, 6)
	sub := src.SubImage(image.Rect(2, 2, 5, 5)).(*image.NRGBA)
	c := &Carver{Width: 3, Height: 3, Axis: Vertical}

	res, err := c.RemoveSeam(sub, verticalSeam(0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 3), res.Bounds())
	assert.Equal(t, []uint8{3, 4}, redRow(res, 0))
	// the parent raster is not compacted
	assert.Equal(t, uint8(2), src.NRGBAAt(2, 2).R)
}

func redRow(img *image.NRGBA, y int) []uint8 {
	var row []uint8
	for x := 0; x < img.Bounds().Dx(); x++ {
		row = append(row, img.NRGBAAt(x, y).R)
	}
	return row
}
