package seamkit

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Axis is the direction a seam runs along.
type Axis int

const (
	// Vertical seams run top to bottom and narrow the image by one column.
	Vertical Axis = iota
	// Horizontal seams run left to right and shorten the image by one row.
	Horizontal
)

func (a Axis) String() string {
	if a == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// Point is a pixel coordinate of a seam.
type Point struct {
	X int
	Y int
}

// Seam is a connected path of pixels crossing the image. A vertical seam
// holds one point per row ordered from top to bottom, a horizontal seam one
// point per column ordered from left to right.
type Seam []Point

// Carver holds the cumulative cost table of a single seam search.
type Carver struct {
	Width  int
	Height int
	Axis   Axis
	Points []float64
}

// NewCarver initializes a new cumulative cost table.
func NewCarver(width, height int) *Carver {
	return &Carver{
		Width:  width,
		Height: height,
		Points: make([]float64, width*height),
	}
}

// dims returns the number of lines the seam crosses and the length of each line.
func (c *Carver) dims() (along, cross int) {
	if c.Axis == Horizontal {
		return c.Width, c.Height
	}
	return c.Height, c.Width
}

// index maps the line i and the offset j inside that line to the table index.
func (c *Carver) index(i, j int) int {
	if c.Axis == Horizontal {
		return i + j*c.Width
	}
	return j + i*c.Width
}

func (c *Carver) point(i, j int) Point {
	if c.Axis == Horizontal {
		return Point{X: i, Y: j}
	}
	return Point{X: j, Y: i}
}

// ComputeSeams computes the cumulative minimum energy of every pixel:
//   - the first line along the axis keeps its own energy
//   - every other pixel adds the smallest cumulative energy of its (at most
//     three) connected neighbours from the previous line.
func (c *Carver) ComputeSeams(em *EnergyMap, axis Axis) ([]float64, error) {
	if em.Width != c.Width || em.Height != c.Height {
		return nil, errors.Errorf("energy map %dx%d does not match the carver %dx%d",
			em.Width, em.Height, c.Width, c.Height)
	}
	if c.Width == 0 || c.Height == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "empty energy map")
	}
	c.Axis = axis
	copy(c.Points, em.Data)

	along, cross := c.dims()
	for i := 1; i < along; i++ {
		for j := 0; j < cross; j++ {
			min := c.Points[c.index(i-1, j)]
			if j > 0 {
				min = math.Min(min, c.Points[c.index(i-1, j-1)])
			}
			if j < cross-1 {
				min = math.Min(min, c.Points[c.index(i-1, j+1)])
			}
			c.Points[c.index(i, j)] += min
		}
	}
	return c.Points, nil
}

// FindLowestEnergySeams backtracks the cumulative cost table from the last
// line to the first one. Equal costs resolve to the lowest index.
func (c *Carver) FindLowestEnergySeams() Seam {
	along, cross := c.dims()

	last := make([]float64, cross)
	for j := range last {
		last[j] = c.Points[c.index(along-1, j)]
	}
	j := floats.MinIdx(last)

	seam := make(Seam, along)
	seam[along-1] = c.point(along-1, j)
	for i := along - 2; i >= 0; i-- {
		j = c.predecessor(i, j, cross)
		seam[i] = c.point(i, j)
	}
	return seam
}

// Cost returns the cumulative energy of the cheapest seam.
func (c *Carver) Cost() float64 {
	along, cross := c.dims()
	min := math.Inf(1)
	for j := 0; j < cross; j++ {
		min = math.Min(min, c.Points[c.index(along-1, j)])
	}
	return min
}

// predecessor returns the offset on line i the seam came from when it reached offset j on line i+1.
func (c *Carver) predecessor(i, j, cross int) int {
	best, min := j, math.Inf(1)
	for k := j - 1; k <= j+1; k++ {
		if k < 0 || k >= cross {
			continue
		}
		if v := c.Points[c.index(i, k)]; v < min {
			best, min = k, v
		}
	}
	return best
}

// FindSeam returns the minimum energy seam of the map along the axis.
func FindSeam(em *EnergyMap, axis Axis) (Seam, error) {
	c := NewCarver(em.Width, em.Height)
	if _, err := c.ComputeSeams(em, axis); err != nil {
		return nil, err
	}
	return c.FindLowestEnergySeams(), nil
}

// SeamEnergy sums the energy of the pixels covered by the seam.
func SeamEnergy(em *EnergyMap, seam Seam) float64 {
	var sum float64
	for _, p := range seam {
		sum += em.At(p.X, p.Y)
	}
	return sum
}

// Valid reports whether the seam crosses a width x height raster along the
// axis with every step moving at most one pixel sideways.
func (s Seam) Valid(width, height int, axis Axis) bool {
	along, cross := height, width
	if axis == Horizontal {
		along, cross = width, height
	}
	if len(s) != along || along == 0 {
		return false
	}
	prev := -1
	for i, p := range s {
		lineIdx, offset := p.Y, p.X
		if axis == Horizontal {
			lineIdx, offset = p.X, p.Y
		}
		if lineIdx != i || offset < 0 || offset >= cross {
			return false
		}
		if i > 0 && (offset-prev > 1 || prev-offset > 1) {
			return false
		}
		prev = offset
	}
	return true
}
