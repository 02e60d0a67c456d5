package mapview

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"gioui.org/f32"
	"github.com/olablt/staticmap/features"
	"golang.org/x/image/vector"
)

// kappa places cubic control points so that four curves approximate a circle.
const kappa = 0.5522847498

type opKind int

const (
	opMove opKind = iota
	opLine
	opCube
	opClose
)

type pathOp struct {
	kind opKind
	pts  [3]f32.Point
}

// path is a list of closed subpaths in layer pixels. Every shape built by
// strokePath and circle winds the same way, so overlapping pieces add up
// instead of cancelling.
type path struct {
	ops      []pathOp
	min, max f32.Point
	bounded  bool
}

func (p *path) extend(pts ...f32.Point) {
	for _, q := range pts {
		if !p.bounded {
			p.min, p.max, p.bounded = q, q, true
			continue
		}
		p.min = f32.Pt(min(p.min.X, q.X), min(p.min.Y, q.Y))
		p.max = f32.Pt(max(p.max.X, q.X), max(p.max.Y, q.Y))
	}
}

func (p *path) moveTo(q f32.Point) {
	p.extend(q)
	p.ops = append(p.ops, pathOp{kind: opMove, pts: [3]f32.Point{q}})
}

func (p *path) lineTo(q f32.Point) {
	p.extend(q)
	p.ops = append(p.ops, pathOp{kind: opLine, pts: [3]f32.Point{q}})
}

func (p *path) cubeTo(c1, c2, q f32.Point) {
	p.extend(c1, c2, q)
	p.ops = append(p.ops, pathOp{kind: opCube, pts: [3]f32.Point{c1, c2, q}})
}

func (p *path) close() {
	p.ops = append(p.ops, pathOp{kind: opClose})
}

// circle adds a circle of radius r around c.
func (p *path) circle(c f32.Point, r float32) {
	if r <= 0 {
		return
	}
	k := r * kappa
	p.moveTo(f32.Pt(c.X+r, c.Y))
	p.cubeTo(f32.Pt(c.X+r, c.Y-k), f32.Pt(c.X+k, c.Y-r), f32.Pt(c.X, c.Y-r))
	p.cubeTo(f32.Pt(c.X-k, c.Y-r), f32.Pt(c.X-r, c.Y-k), f32.Pt(c.X-r, c.Y))
	p.cubeTo(f32.Pt(c.X-r, c.Y+k), f32.Pt(c.X-k, c.Y+r), f32.Pt(c.X, c.Y+r))
	p.cubeTo(f32.Pt(c.X+k, c.Y+r), f32.Pt(c.X+r, c.Y+k), f32.Pt(c.X+r, c.Y))
	p.close()
}

// segment adds the rectangle of half width hw around the segment a-b.
func (p *path) segment(a, b f32.Point, hw float32) {
	d := b.Sub(a)
	length := float32(math.Hypot(float64(d.X), float64(d.Y)))
	if length == 0 {
		return
	}
	n := f32.Pt(-d.Y, d.X).Mul(hw / length)
	p.moveTo(a.Add(n))
	p.lineTo(b.Add(n))
	p.lineTo(b.Sub(n))
	p.lineTo(a.Sub(n))
	p.close()
}

// strokePath outlines a polyline with round joins and caps. width is the
// stroke width on the canvas.
func strokePath(pts []f32.Point, width float64, closed bool) *path {
	p := &path{}
	hw := float32(width * supersample / 2)
	if hw <= 0 || len(pts) == 0 {
		return p
	}
	for i := 1; i < len(pts); i++ {
		p.segment(pts[i-1], pts[i], hw)
	}
	if closed && len(pts) > 2 && pts[0] != pts[len(pts)-1] {
		p.segment(pts[len(pts)-1], pts[0], hw)
	}
	for _, q := range pts {
		p.circle(q, hw)
	}
	return p
}

func ringPath(pts []f32.Point) *path {
	p := &path{}
	if len(pts) < 3 {
		return p
	}
	p.moveTo(pts[0])
	for _, q := range pts[1:] {
		p.lineTo(q)
	}
	p.close()
	return p
}

// layer is the supersampled RGBA image the vector features are drawn on.
type layer struct {
	img   *image.RGBA
	rast  vector.Rasterizer
	dirty bool
}

func newLayer(w, h int) *layer {
	return &layer{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// fill rasterizes p with c, compositing it over the layer. Only the part of
// the layer under the path's bounding box is touched.
func (l *layer) fill(p *path, c color.Color) {
	if len(p.ops) == 0 || features.IsTransparent(c) {
		return
	}
	r := image.Rect(
		int(math.Floor(float64(p.min.X)))-1, int(math.Floor(float64(p.min.Y)))-1,
		int(math.Ceil(float64(p.max.X)))+1, int(math.Ceil(float64(p.max.Y)))+1,
	).Intersect(l.img.Bounds())
	if r.Empty() {
		return
	}

	off := f32.Pt(float32(r.Min.X), float32(r.Min.Y))
	l.rast.Reset(r.Dx(), r.Dy())
	l.rast.DrawOp = draw.Over
	for _, op := range p.ops {
		switch op.kind {
		case opMove:
			q := op.pts[0].Sub(off)
			l.rast.MoveTo(q.X, q.Y)
		case opLine:
			q := op.pts[0].Sub(off)
			l.rast.LineTo(q.X, q.Y)
		case opCube:
			c1, c2, q := op.pts[0].Sub(off), op.pts[1].Sub(off), op.pts[2].Sub(off)
			l.rast.CubeTo(c1.X, c1.Y, c2.X, c2.Y, q.X, q.Y)
		case opClose:
			l.rast.ClosePath()
		}
	}
	l.rast.Draw(l.img, r, image.NewUniform(c), image.Point{})
	l.dirty = true
}
