package imop

import (
	"github.com/pkg/errors"
	"github.com/seamkit/seamkit/utils"
)

// The supported blend modes.
const (
	Darken   = "darken"
	Lighten  = "lighten"
	Multiply = "multiply"
	Screen   = "screen"
	Overlay  = "overlay"
)

var blendModes = []string{Darken, Lighten, Multiply, Screen, Overlay}

// Blend holds the currently active blend mode.
type Blend struct {
	OpType string
}

// NewBlend initializes a new Blend.
func NewBlend() *Blend {
	return &Blend{}
}

// Set activates one of the supported blend modes.
func (b *Blend) Set(opType string) error {
	if !utils.Contains(blendModes, opType) {
		return errors.Errorf("unsupported blend mode: %q", opType)
	}
	b.OpType = opType
	return nil
}

// Get returns the currently active blend mode.
func (b *Blend) Get() string {
	return b.OpType
}

// apply mixes the normalized source and backdrop channel values.
func (b *Blend) apply(cs, cb float64) float64 {
	switch b.OpType {
	case Darken:
		return utils.Min(cs, cb)
	case Lighten:
		return utils.Max(cs, cb)
	case Multiply:
		return cs * cb
	case Screen:
		return cs + cb - cs*cb
	case Overlay:
		if cb <= 0.5 {
			return 2 * cs * cb
		}
		return 1 - 2*(1-cs)*(1-cb)
	}
	return cs
}
