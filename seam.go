package seamkit

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// RemoveSeam deletes the seam pixels from img, closing the gap by shifting the
// following pixels. The pixel buffer is compacted in place, so img must not be
// shared with other owners.
func (c *Carver) RemoveSeam(img *image.NRGBA, seam Seam) (*image.NRGBA, error) {
	img = normalize(img)
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	if !seam.Valid(width, height, c.Axis) {
		return nil, errors.Wrapf(ErrSeamMismatch, "%s seam of length %d on a %dx%d image",
			c.Axis, len(seam), width, height)
	}

	if c.Axis == Horizontal {
		for x := 0; x < width; x++ {
			for y := seam[x].Y; y < height-1; y++ {
				i := img.PixOffset(x, y)
				copy(img.Pix[i:i+4], img.Pix[i+img.Stride:i+img.Stride+4])
			}
		}
		img.Pix = img.Pix[:width*(height-1)*4]
		img.Rect = image.Rect(0, 0, width, height-1)
		return img, nil
	}

	dst := 0
	for y := 0; y < height; y++ {
		row := y * img.Stride
		sx := seam[y].X
		dst += copy(img.Pix[dst:], img.Pix[row:row+sx*4])
		dst += copy(img.Pix[dst:], img.Pix[row+(sx+1)*4:row+width*4])
	}
	img.Pix = img.Pix[:dst]
	img.Stride = (width - 1) * 4
	img.Rect = image.Rect(0, 0, width-1, height)

	return img, nil
}

// AddSeam inserts a new pixel right after every seam pixel. The new pixel is
// the average of the seam pixel and its successor, or a copy of the seam pixel
// on the image border.
func (c *Carver) AddSeam(img *image.NRGBA, seam Seam) (*image.NRGBA, error) {
	img = normalize(img)
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	if !seam.Valid(width, height, c.Axis) {
		return nil, errors.Wrapf(ErrSeamMismatch, "%s seam of length %d on a %dx%d image",
			c.Axis, len(seam), width, height)
	}

	if c.Axis == Horizontal {
		dst := image.NewNRGBA(image.Rect(0, 0, width, height+1))
		for x := 0; x < width; x++ {
			sy := seam[x].Y
			for y := 0; y < height; y++ {
				dy := y
				if y > sy {
					dy++
				}
				copyPixel(dst, x, dy, img, x, y)
			}
			next := sy
			if sy+1 < height {
				next = sy + 1
			}
			averagePixel(dst, x, sy+1, img, x, sy, x, next)
		}
		return dst, nil
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width+1, height))
	for y := 0; y < height; y++ {
		sx := seam[y].X
		src := y * img.Stride
		row := y * dst.Stride

		copy(dst.Pix[row:row+(sx+1)*4], img.Pix[src:src+(sx+1)*4])
		copy(dst.Pix[row+(sx+2)*4:row+(width+1)*4], img.Pix[src+(sx+1)*4:src+width*4])

		next := sx
		if sx+1 < width {
			next = sx + 1
		}
		averagePixel(dst, sx+1, y, img, sx, y, next, y)
	}
	return dst, nil
}

// normalize makes sure the image starts at the origin and has no row padding.
func normalize(img *image.NRGBA) *image.NRGBA {
	if img.Rect.Min == (image.Point{}) && img.Stride == img.Rect.Dx()*4 {
		return img
	}
	return imaging.Clone(img)
}

func copyPixel(dst *image.NRGBA, dx, dy int, src *image.NRGBA, sx, sy int) {
	d, s := dst.PixOffset(dx, dy), src.PixOffset(sx, sy)
	copy(dst.Pix[d:d+4], src.Pix[s:s+4])
}

func averagePixel(dst *image.NRGBA, dx, dy int, src *image.NRGBA, x0, y0, x1, y1 int) {
	d := dst.PixOffset(dx, dy)
	a, b := src.PixOffset(x0, y0), src.PixOffset(x1, y1)
	for c := 0; c < 4; c++ {
		dst.Pix[d+c] = uint8((uint16(src.Pix[a+c]) + uint16(src.Pix[b+c])) / 2)
	}
}
