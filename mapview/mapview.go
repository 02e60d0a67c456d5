package mapview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"

	"github.com/olablt/staticmap/features"
	"github.com/olablt/staticmap/tiles"
	"github.com/paulmach/orb"
)

var (
	ErrEmptyMap    = errors.New("map has no features and no explicit center and zoom")
	ErrInvalidZoom = errors.New("zoom out of range")
)

// MapView collects features and renders them on top of map tiles.
// A MapView is not safe for concurrent use.
type MapView struct {
	cfg         Config
	TileManager *tiles.TileManager
	logger      *slog.Logger

	lines    []*features.Line
	polygons []*features.Polygon
	markers  []features.Marker
}

func New(width, height int, opts ...Option) (*MapView, error) {
	cfg := defaultConfig(width, height)
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &MapView{
		cfg:         cfg,
		TileManager: cfg.tileManager(),
		logger:      cfg.logger,
	}, nil
}

func (mv *MapView) Config() Config { return mv.cfg }

func (mv *MapView) AddLine(l *features.Line) {
	mv.lines = append(mv.lines, l)
}

func (mv *MapView) AddPolygon(p *features.Polygon) {
	mv.polygons = append(mv.polygons, p)
}

func (mv *MapView) AddMarker(m features.Marker) {
	mv.markers = append(mv.markers, m)
}

// AddCollection adds every feature of a loaded GeoJSON document.
func (mv *MapView) AddCollection(c *features.Collection) {
	mv.lines = append(mv.lines, c.Lines...)
	mv.polygons = append(mv.polygons, c.Polygons...)
	mv.markers = append(mv.markers, c.Markers...)
}

// Len returns the number of features added so far.
func (mv *MapView) Len() int {
	return len(mv.lines) + len(mv.polygons) + len(mv.markers)
}

type renderRequest struct {
	zoom   *int
	center *orb.Point
}

type RenderOption func(*renderRequest)

// WithZoom renders at a fixed zoom instead of the largest one that fits.
func WithZoom(zoom int) RenderOption {
	return func(r *renderRequest) { r.zoom = &zoom }
}

// WithCenter centres the map on a lon/lat point instead of the feature extent.
func WithCenter(center orb.Point) RenderOption {
	return func(r *renderRequest) { r.center = &center }
}

// Result is a rendered map.
type Result struct {
	Image            *image.RGBA
	Zoom             int
	CenterX, CenterY float64 // tile space
	TileSize         int
	Stats            tiles.FetchStats
}

// Center returns the lon/lat at the middle of the image.
func (r *Result) Center() orb.Point {
	return orb.Point{tiles.XToLon(r.CenterX, r.Zoom), tiles.YToLat(r.CenterY, r.Zoom)}
}

// Bound returns the lon/lat area covered by the image.
func (r *Result) Bound() orb.Bound {
	size := r.Image.Bounds().Size()
	ts := float64(r.TileSize)
	halfW, halfH := float64(size.X)/2/ts, float64(size.Y)/2/ts
	return orb.Bound{
		Min: orb.Point{tiles.XToLon(r.CenterX-halfW, r.Zoom), tiles.YToLat(r.CenterY+halfH, r.Zoom)},
		Max: orb.Point{tiles.XToLon(r.CenterX+halfW, r.Zoom), tiles.YToLat(r.CenterY-halfH, r.Zoom)},
	}
}

// MetersPerPixel returns the ground resolution at the image centre.
func (r *Result) MetersPerPixel() float64 {
	return tiles.CalculateMetersPerPixel(r.Center().Lat(), r.Zoom, r.TileSize)
}

// Render resolves zoom and centre, downloads the base layer and draws every
// feature. No image is returned when a tile cannot be fetched.
// Without WithCenter the map is centred on the middle of the extent in
// projected tile space, not on its geographic midpoint.
func (mv *MapView) Render(ctx context.Context, opts ...RenderOption) (*Result, error) {
	req := renderRequest{}
	for _, opt := range opts {
		opt(&req)
	}
	if mv.Len() == 0 && (req.zoom == nil || req.center == nil) {
		return nil, ErrEmptyMap
	}

	var zoom int
	if req.zoom != nil {
		zoom = *req.zoom
		if zoom < 0 || zoom > tiles.MaxZoom {
			return nil, fmt.Errorf("%w: %d", ErrInvalidZoom, zoom)
		}
	} else {
		z, err := mv.CalculateZoom()
		if err != nil {
			return nil, err
		}
		zoom = z
	}

	v := &view{
		zoom:     zoom,
		width:    mv.cfg.Width,
		height:   mv.cfg.Height,
		tileSize: mv.cfg.TileSize,
	}
	if req.center != nil {
		v.centerX = tiles.LonToX(req.center.Lon(), zoom)
		v.centerY = tiles.LatToY(req.center.Lat(), zoom)
	} else {
		ext, err := mv.ExtentAt(zoom)
		if err != nil {
			return nil, err
		}
		v.centerX = (tiles.LonToWorldX(ext.Min.Lon(), zoom) + tiles.LonToWorldX(ext.Max.Lon(), zoom)) / 2
		v.centerY = (tiles.LatToY(ext.Min.Lat(), zoom) + tiles.LatToY(ext.Max.Lat(), zoom)) / 2
	}

	mv.logger.Debug("rendering map", "zoom", zoom,
		"center_x", v.centerX, "center_y", v.centerY, "features", mv.Len())

	canvas := image.NewRGBA(image.Rect(0, 0, v.width, v.height))
	if mv.cfg.Background != nil {
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(mv.cfg.Background), image.Point{}, draw.Src)
	}

	stats, err := mv.drawBaseLayer(ctx, canvas, v)
	if err != nil {
		return nil, err
	}
	mv.drawFeatures(canvas, v)

	return &Result{
		Image:    canvas,
		Zoom:     zoom,
		CenterX:  v.centerX,
		CenterY:  v.centerY,
		TileSize: v.tileSize,
		Stats:    stats,
	}, nil
}
