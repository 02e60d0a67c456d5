package mapview

import (
	"math"

	"github.com/olablt/staticmap/features"
	"github.com/olablt/staticmap/tiles"
	"github.com/paulmach/orb"
)

// Extent returns the lon/lat bounding box of every feature coordinate,
// markers counted as their anchor point only. Longitudes lie in [-180, 180].
func (mv *MapView) Extent() (orb.Bound, error) {
	return mv.extent(-1)
}

// ExtentAt is like Extent but grows each marker by its pixel footprint as
// drawn at zoom.
func (mv *MapView) ExtentAt(zoom int) (orb.Bound, error) {
	return mv.extent(zoom)
}

func (mv *MapView) extent(zoom int) (orb.Bound, error) {
	if mv.Len() == 0 {
		return orb.Bound{}, ErrEmptyMap
	}

	var ret orb.Bound
	first := true
	union := func(b orb.Bound) {
		if first {
			ret, first = b, false
			return
		}
		ret = ret.Union(b)
	}

	for _, l := range mv.lines {
		union(l.Extent())
	}
	for _, p := range mv.polygons {
		union(p.Extent())
	}
	for _, m := range mv.markers {
		if zoom < 0 {
			union(features.NormalizePoint(m.Anchor()).Bound())
			continue
		}
		union(markerBound(m, zoom, mv.cfg.TileSize))
	}
	ret.Min[0] = math.Max(ret.Min[0], -180)
	ret.Max[0] = math.Min(ret.Max[0], 180)
	return ret, nil
}

// markerBound converts the marker's pixel footprint at zoom back to lon/lat.
func markerBound(m features.Marker, zoom, tileSize int) orb.Bound {
	a := features.NormalizePoint(m.Anchor())
	x, y := tiles.LonToWorldX(a.Lon(), zoom), tiles.LatToY(a.Lat(), zoom)
	fp := m.Footprint()
	ts := float64(tileSize)

	return orb.Bound{
		Min: orb.Point{tiles.XToLon(x-float64(fp.Left)/ts, zoom), tiles.YToLat(y+float64(fp.Bottom)/ts, zoom)},
		Max: orb.Point{tiles.XToLon(x+float64(fp.Right)/ts, zoom), tiles.YToLat(y-float64(fp.Top)/ts, zoom)},
	}
}

// CalculateZoom returns the largest zoom from tiles.MaxZoom down to 0 at
// which the feature extent fits into the canvas minus its padding. When
// nothing fits, 0 is returned and a warning is logged.
func (mv *MapView) CalculateZoom() (int, error) {
	availW := float64(mv.cfg.Width - 2*mv.cfg.PaddingX)
	availH := float64(mv.cfg.Height - 2*mv.cfg.PaddingY)
	ts := float64(mv.cfg.TileSize)

	for z := tiles.MaxZoom; z >= 0; z-- {
		ext, err := mv.ExtentAt(z)
		if err != nil {
			return 0, err
		}
		w, h := extentSize(ext, z, ts)
		if w <= availW && h <= availH {
			return z, nil
		}
	}
	mv.logger.Warn("features do not fit at any zoom, using zoom 0",
		"width", mv.cfg.Width, "height", mv.cfg.Height,
		"padding_x", mv.cfg.PaddingX, "padding_y", mv.cfg.PaddingY)
	return 0, nil
}

// extentSize returns the pixel width and height of b at zoom.
func extentSize(b orb.Bound, zoom int, tileSize float64) (w, h float64) {
	w = (tiles.LonToWorldX(b.Max.Lon(), zoom) - tiles.LonToWorldX(b.Min.Lon(), zoom)) * tileSize
	h = (tiles.LatToY(b.Min.Lat(), zoom) - tiles.LatToY(b.Max.Lat(), zoom)) * tileSize
	return w, h
}
