package mapview

import (
	"context"
	"image"
	"image/draw"
	"math"

	"gioui.org/f32"
	"github.com/olablt/staticmap/features"
	"github.com/olablt/staticmap/tiles"
	"github.com/paulmach/orb"
	xdraw "golang.org/x/image/draw"
)

// supersample is the scale of the vector layer relative to the canvas.
const supersample = 2

// view maps tile space onto canvas pixels.
type view struct {
	zoom             int
	centerX, centerY float64
	width, height    int
	tileSize         int
}

func (v *view) xToPx(x float64) float64 {
	return (x-v.centerX)*float64(v.tileSize) + float64(v.width)/2
}

func (v *view) yToPx(y float64) float64 {
	return (y-v.centerY)*float64(v.tileSize) + float64(v.height)/2
}

// lonToX projects lon onto the copy of the world nearest the view centre,
// so features on both sides of the antimeridian stay adjacent.
func (v *view) lonToX(lon float64) float64 {
	x := tiles.LonToX(lon, v.zoom)
	n := math.Exp2(float64(v.zoom))
	return x - n*math.Round((x-v.centerX)/n)
}

// project returns the canvas pixel of a lon/lat point, multiplied by scale.
func (v *view) project(p orb.Point, scale float64) orb.Point {
	return orb.Point{
		v.xToPx(v.lonToX(p.Lon())) * scale,
		v.yToPx(tiles.LatToY(p.Lat(), v.zoom)) * scale,
	}
}

func (v *view) projectAll(ls []orb.Point, scale float64) orb.LineString {
	ret := make(orb.LineString, len(ls))
	for i, p := range ls {
		ret[i] = v.project(p, scale)
	}
	return ret
}

// tileRect returns the canvas rectangle covered by an unwrapped tile.
func (v *view) tileRect(t tiles.Tile) image.Rectangle {
	x0 := int(math.Round(v.xToPx(float64(t.X))))
	y0 := int(math.Round(v.yToPx(float64(t.Y))))
	return image.Rect(x0, y0, x0+v.tileSize, y0+v.tileSize)
}

func (mv *MapView) drawBaseLayer(ctx context.Context, canvas *image.RGBA, v *view) (tiles.FetchStats, error) {
	placements := tiles.CalculateVisibleTiles(v.centerX, v.centerY, v.zoom,
		image.Pt(v.width, v.height), v.tileSize)
	return mv.TileManager.Fetch(ctx, placements, func(t tiles.Tile, img image.Image) {
		pasteTile(canvas, v.tileRect(t), img)
	})
}

// pasteTile composites a tile over the canvas, rescaling tiles served at
// another size.
func pasteTile(canvas *image.RGBA, r image.Rectangle, img image.Image) {
	b := img.Bounds()
	if b.Size() == r.Size() {
		draw.Draw(canvas, r, img, b.Min, draw.Over)
		return
	}
	xdraw.CatmullRom.Scale(canvas, r, img, b, xdraw.Over, nil)
}

// drawFeatures draws lines, circle markers and polygons on a supersampled
// layer, scales it down over the canvas and pastes icons last.
func (mv *MapView) drawFeatures(canvas *image.RGBA, v *view) {
	layer := newLayer(v.width*supersample, v.height*supersample)

	for _, l := range mv.lines {
		pts := mv.vertices(v, l.Coords, l.Simplify)
		layer.fill(strokePath(pts, l.Width, false), l.Color)
	}

	for _, m := range mv.markers {
		cm, ok := m.(*features.CircleMarker)
		if !ok {
			continue
		}
		c := toF32(v.project(cm.Coord, supersample))
		p := &path{}
		p.circle(c, float32(cm.Radius*supersample))
		layer.fill(p, cm.Color)
	}

	for _, pg := range mv.polygons {
		if !pg.Visible() {
			continue
		}
		pts := mv.vertices(v, pg.Ring, pg.Simplify)
		if !features.IsTransparent(pg.Fill) {
			layer.fill(ringPath(pts), pg.Fill)
		}
		if !features.IsTransparent(pg.Outline) && pg.OutlineWidth > 0 {
			layer.fill(strokePath(pts, pg.OutlineWidth, true), pg.Outline)
		}
	}

	if layer.dirty {
		xdraw.CatmullRom.Scale(canvas, canvas.Bounds(), layer.img, layer.img.Bounds(), xdraw.Over, nil)
	}

	for _, m := range mv.markers {
		im, ok := m.(*features.IconMarker)
		if !ok || im.Icon == nil {
			continue
		}
		p := v.project(im.Coord, 1)
		x := int(math.Round(p.X())) - im.OffsetX
		y := int(math.Round(p.Y())) - im.OffsetY
		b := im.Icon.Bounds()
		draw.Draw(canvas, image.Rect(x, y, x+b.Dx(), y+b.Dy()), im.Icon, b.Min, draw.Over)
	}
}

// vertices projects coordinates onto the supersampled layer, simplifying
// them in pixel space when asked to.
func (mv *MapView) vertices(v *view, coords []orb.Point, simplify bool) []f32.Point {
	pts := v.projectAll(coords, supersample)
	if simplify {
		pts = features.SimplifyPixels(pts, features.DefaultTolerance)
	}
	ret := make([]f32.Point, len(pts))
	for i, p := range pts {
		ret[i] = toF32(p)
	}
	return ret
}

func toF32(p orb.Point) f32.Point {
	return f32.Pt(float32(p.X()), float32(p.Y()))
}
