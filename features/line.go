package features

import (
	"errors"
	"image/color"

	"github.com/olablt/staticmap/tiles"
	"github.com/paulmach/orb"
)

var ErrNoCoordinates = errors.New("feature has no coordinates")

// Line is a polyline drawn with a round-joined stroke.
type Line struct {
	Coords   orb.LineString
	Color    color.Color
	Width    float64 // stroke width in pixels
	Simplify bool
}

// NewLine returns a line through coords (lon/lat pairs).
func NewLine(coords orb.LineString, c color.Color, width float64) (*Line, error) {
	if len(coords) == 0 {
		return nil, ErrNoCoordinates
	}
	return &Line{Coords: coords, Color: c, Width: width}, nil
}

// Extent returns the bounding box of the line's coordinates.
func (l *Line) Extent() orb.Bound {
	return bound(l.Coords)
}

// bound is the bounding box of pts with longitudes outside [-180, 180]
// wrapped back onto the map.
func bound(pts []orb.Point) orb.Bound {
	if len(pts) == 0 {
		return orb.Bound{}
	}
	first := NormalizePoint(pts[0])
	ret := orb.Bound{Min: first, Max: first}
	for _, p := range pts[1:] {
		ret = ret.Extend(NormalizePoint(p))
	}
	return ret
}

// NormalizePoint returns p with its longitude normalized by tiles.NormalizeLon.
func NormalizePoint(p orb.Point) orb.Point {
	return orb.Point{tiles.NormalizeLon(p.Lon()), p.Lat()}
}
