package features

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Style holds the values used when a GeoJSON feature carries no
// simplestyle property of its own.
type Style struct {
	Stroke       color.Color
	StrokeWidth  float64
	Fill         color.Color
	MarkerColor  color.Color
	MarkerRadius float64
	Simplify     bool
}

var DefaultStyle = Style{
	Stroke:       color.NRGBA{0x55, 0x55, 0x55, 0xff},
	StrokeWidth:  2,
	Fill:         color.NRGBA{0x55, 0x55, 0x55, 0x99},
	MarkerColor:  color.NRGBA{0x7e, 0x7e, 0x7e, 0xff},
	MarkerRadius: 6,
}

var markerSizes = map[string]float64{
	"small":  4,
	"medium": 6,
	"large":  9,
}

// Collection is the result of loading a GeoJSON document.
type Collection struct {
	Lines    []*Line
	Polygons []*Polygon
	Markers  []Marker
}

func (c *Collection) Len() int {
	return len(c.Lines) + len(c.Polygons) + len(c.Markers)
}

// Loader converts GeoJSON features. Relative "marker-icon" paths are
// resolved against BaseDir.
type Loader struct {
	Style   Style
	BaseDir string
}

func (ld *Loader) Read(r io.Reader) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("geojson: %w", err)
	}
	return ld.Convert(fc)
}

func (ld *Loader) Convert(fc *geojson.FeatureCollection) (*Collection, error) {
	ret := &Collection{}
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		if err := ld.add(ret, f.Geometry, f.Properties); err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
	}
	return ret, nil
}

func (ld *Loader) add(c *Collection, g orb.Geometry, props geojson.Properties) error {
	switch geom := g.(type) {
	case orb.Point:
		m, err := ld.marker(geom, props)
		if err != nil {
			return err
		}
		c.Markers = append(c.Markers, m)
	case orb.MultiPoint:
		for _, p := range geom {
			if err := ld.add(c, p, props); err != nil {
				return err
			}
		}
	case orb.LineString:
		l, err := ld.line(geom, props)
		if err != nil {
			return err
		}
		c.Lines = append(c.Lines, l)
	case orb.MultiLineString:
		for _, ls := range geom {
			if err := ld.add(c, ls, props); err != nil {
				return err
			}
		}
	case orb.Ring:
		p, err := ld.polygon(geom, props)
		if err != nil {
			return err
		}
		c.Polygons = append(c.Polygons, p)
	case orb.Polygon:
		// holes are not rendered
		if len(geom) == 0 {
			return ErrNoCoordinates
		}
		return ld.add(c, geom[0], props)
	case orb.MultiPolygon:
		for _, poly := range geom {
			if err := ld.add(c, poly, props); err != nil {
				return err
			}
		}
	case orb.Bound:
		return ld.add(c, geom.ToRing(), props)
	case orb.Collection:
		for _, sub := range geom {
			if err := ld.add(c, sub, props); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported geometry %s", g.GeoJSONType())
	}
	return nil
}

func (ld *Loader) line(ls orb.LineString, props geojson.Properties) (*Line, error) {
	stroke, err := ld.color(props, "stroke", "stroke-opacity", ld.Style.Stroke)
	if err != nil {
		return nil, err
	}
	l, err := NewLine(ls, stroke, props.MustFloat64("stroke-width", ld.Style.StrokeWidth))
	if err != nil {
		return nil, err
	}
	l.Simplify = props.MustBool("simplify", ld.Style.Simplify)
	return l, nil
}

func (ld *Loader) polygon(ring orb.Ring, props geojson.Properties) (*Polygon, error) {
	fill, err := ld.color(props, "fill", "fill-opacity", ld.Style.Fill)
	if err != nil {
		return nil, err
	}
	outline, err := ld.color(props, "stroke", "stroke-opacity", ld.Style.Stroke)
	if err != nil {
		return nil, err
	}
	p, err := NewPolygon(ring, fill, outline)
	if err != nil {
		return nil, err
	}
	p.OutlineWidth = props.MustFloat64("stroke-width", 1)
	p.Simplify = props.MustBool("simplify", ld.Style.Simplify)
	return p, nil
}

func (ld *Loader) marker(pt orb.Point, props geojson.Properties) (Marker, error) {
	if icon := props.MustString("marker-icon", ""); icon != "" {
		if !filepath.IsAbs(icon) && ld.BaseDir != "" {
			icon = filepath.Join(ld.BaseDir, icon)
		}
		m, err := LoadIconMarker(pt, icon, 0, 0)
		if err != nil {
			return nil, err
		}
		// default anchor: bottom centre, the tip of a pin
		size := m.Icon.Bounds().Size()
		m.OffsetX = props.MustInt("marker-offset-x", size.X/2)
		m.OffsetY = props.MustInt("marker-offset-y", size.Y)
		return m, nil
	}

	c, err := ld.color(props, "marker-color", "", ld.Style.MarkerColor)
	if err != nil {
		return nil, err
	}
	radius := ld.Style.MarkerRadius
	if r, ok := markerSizes[props.MustString("marker-size", "")]; ok {
		radius = r
	}
	radius = props.MustFloat64("marker-radius", radius)
	return NewCircleMarker(pt, c, radius), nil
}

func (ld *Loader) color(props geojson.Properties, key, opacityKey string, def color.Color) (color.Color, error) {
	c := def
	if s := props.MustString(key, ""); s != "" {
		parsed, err := ParseColor(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		c = parsed
	}
	if opacityKey != "" && c != nil {
		c = WithOpacity(c, props.MustFloat64(opacityKey, 1))
	}
	return c, nil
}
