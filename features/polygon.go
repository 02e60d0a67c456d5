package features

import (
	"image/color"

	"github.com/paulmach/orb"
)

// Polygon is a closed ring with an optional fill and an optional outline.
type Polygon struct {
	Ring         orb.Ring
	Fill         color.Color // nil or transparent: not filled
	Outline      color.Color // nil or transparent: no outline
	OutlineWidth float64     // pixels, defaults to 1
	Simplify     bool
}

func NewPolygon(ring orb.Ring, fill, outline color.Color) (*Polygon, error) {
	if len(ring) == 0 {
		return nil, ErrNoCoordinates
	}
	return &Polygon{Ring: ring, Fill: fill, Outline: outline, OutlineWidth: 1}, nil
}

func (p *Polygon) Extent() orb.Bound {
	return bound(p.Ring)
}

// Visible reports whether drawing the polygon would change any pixel.
func (p *Polygon) Visible() bool {
	return !IsTransparent(p.Fill) || !IsTransparent(p.Outline)
}
