package features

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// DefaultTolerance is the simplification tolerance in (supersampled) pixels.
const DefaultTolerance = 11

// SimplifyPixels drops every intermediate point closer than tolerance to
// the last retained point. The first and last points are always kept.
// The input is not modified.
func SimplifyPixels(points orb.LineString, tolerance float64) orb.LineString {
	if len(points) <= 2 {
		return points.Clone()
	}
	return simplify.Radial(planar.Distance, tolerance).LineString(points.Clone())
}
