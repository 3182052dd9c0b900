package seamkit

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// ProtectEnergy is added to every energy cell covered by a protective mask.
// It is well above the largest gradient a pixel can produce, so a seam only
// crosses a protected region when no other path exists.
const ProtectEnergy = 1e6

// EnergyMode selects how the per pixel importance is computed.
type EnergyMode int

const (
	// GradientEnergy sums the absolute horizontal and vertical RGB differences.
	GradientEnergy EnergyMode = iota
	// SobelEnergy runs the Sobel operator over the image luminance.
	SobelEnergy
)

func (m EnergyMode) String() string {
	switch m {
	case GradientEnergy:
		return "gradient"
	case SobelEnergy:
		return "sobel"
	}
	return "unknown"
}

type kernel [3][3]float64

var (
	kernelX = kernel{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}

	kernelY = kernel{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// EnergyMap holds one non-negative importance value per raster pixel.
type EnergyMap struct {
	Width  int
	Height int
	Data   []float64
}

// NewEnergyMap allocates a zeroed energy map.
func NewEnergyMap(width, height int) *EnergyMap {
	return &EnergyMap{
		Width:  width,
		Height: height,
		Data:   make([]float64, width*height),
	}
}

// At returns the energy of the pixel at (x, y).
func (em *EnergyMap) At(x, y int) float64 {
	return em.Data[x+y*em.Width]
}

// Set sets the energy of the pixel at (x, y).
func (em *EnergyMap) Set(x, y int, v float64) {
	em.Data[x+y*em.Width] = v
}

// ComputeEnergy builds the energy map of img. Neighbours outside the raster
// are clamped to the nearest edge pixel.
func ComputeEnergy(img *image.NRGBA, mode EnergyMode, threshold float64) *EnergyMap {
	switch mode {
	case SobelEnergy:
		return sobelEnergy(img, threshold)
	default:
		return gradientEnergy(img)
	}
}

func gradientEnergy(img *image.NRGBA) *EnergyMap {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	em := NewEnergyMap(width, height)

	for y := 0; y < height; y++ {
		up, down := clamp(y-1, height), clamp(y+1, height)
		for x := 0; x < width; x++ {
			left, right := clamp(x-1, width), clamp(x+1, width)

			l := img.PixOffset(left, y)
			r := img.PixOffset(right, y)
			u := img.PixOffset(x, up)
			d := img.PixOffset(x, down)

			var e float64
			for c := 0; c < 3; c++ {
				e += math.Abs(float64(img.Pix[r+c]) - float64(img.Pix[l+c]))
				e += math.Abs(float64(img.Pix[d+c]) - float64(img.Pix[u+c]))
			}
			em.Data[x+y*width] = e
		}
	}
	return em
}

// sobelEnergy detects the image edges on the luminance channel.
// See https://en.wikipedia.org/wiki/Sobel_operator
func sobelEnergy(img *image.NRGBA, threshold float64) *EnergyMap {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	em := NewEnergyMap(width, height)
	gray := luminance(img)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sumX, sumY float64
			for ky := 0; ky < 3; ky++ {
				row := clamp(y+ky-1, height)
				for kx := 0; kx < 3; kx++ {
					col := clamp(x+kx-1, width)
					lum := float64(gray[col+row*width])
					sumX += lum * kernelX[ky][kx]
					sumY += lum * kernelY[ky][kx]
				}
			}
			magnitude := math.Min(math.Sqrt(sumX*sumX+sumY*sumY), 255)
			if magnitude <= threshold {
				magnitude = 0
			}
			em.Data[x+y*width] = magnitude
		}
	}
	return em
}

// luminance returns one grayscale byte per pixel, row by row.
func luminance(img *image.NRGBA) []uint8 {
	gray := effect.Grayscale(img)
	b := gray.Bounds()
	lum := make([]uint8, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			// every channel holds the same value
			lum = append(lum, gray.Pix[gray.PixOffset(x, y)])
		}
	}
	return lum
}

// blur returns a smoothed copy of img used only as energy input.
func blur(img *image.NRGBA, radius int) *image.NRGBA {
	if radius <= 0 {
		return img
	}
	return imaging.Blur(img, float64(radius))
}

// applyMasks raises the energy under the protective mask and zeroes it under the removal mask.
func applyMasks(em *EnergyMap, protect, remove *image.NRGBA) {
	for y := 0; y < em.Height; y++ {
		for x := 0; x < em.Width; x++ {
			if maskSet(remove, x, y) {
				em.Set(x, y, 0)
				continue
			}
			if maskSet(protect, x, y) {
				em.Set(x, y, em.At(x, y)+ProtectEnergy)
			}
		}
	}
}

// maskSet reports whether the mask marks the pixel at (x, y).
// A marked pixel is bright and not fully transparent.
func maskSet(mask *image.NRGBA, x, y int) bool {
	if mask == nil || !(image.Point{X: x, Y: y}).In(mask.Bounds()) {
		return false
	}
	i := mask.PixOffset(x, y)
	if mask.Pix[i+3] == 0 {
		return false
	}
	lum := 0.299*float64(mask.Pix[i]) + 0.587*float64(mask.Pix[i+1]) + 0.114*float64(mask.Pix[i+2])
	return lum > 127
}

// clamp limits v to the [0, n) range.
func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
