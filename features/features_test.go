package features

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func TestLineExtent(t *testing.T) {
	l, err := NewLine(orb.LineString{{13.4, 52.5}, {2.3, 48.9}, {5, 50}}, color.Black, 3)
	require.NoError(t, err)
	require.Equal(t, orb.Bound{Min: orb.Point{2.3, 48.9}, Max: orb.Point{13.4, 52.5}}, l.Extent())

	_, err = NewLine(nil, color.Black, 1)
	require.ErrorIs(t, err, ErrNoCoordinates)
}

func TestExtentWrapsLongitudes(t *testing.T) {
	l, err := NewLine(orb.LineString{{190, 10}, {191, 11}}, color.Black, 1)
	require.NoError(t, err)
	require.Equal(t, orb.Bound{Min: orb.Point{-170, 10}, Max: orb.Point{-169, 11}}, l.Extent())

	// the eastern edge itself is not wrapped
	l, err = NewLine(orb.LineString{{170, 10}, {180, 10.5}}, color.Black, 1)
	require.NoError(t, err)
	require.Equal(t, orb.Bound{Min: orb.Point{170, 10}, Max: orb.Point{180, 10.5}}, l.Extent())

	p, err := NewPolygon(orb.Ring{{-200, 0}, {-195, 0}, {-195, 5}, {-200, 0}}, color.Black, nil)
	require.NoError(t, err)
	ext := p.Extent()
	require.Equal(t, orb.Bound{Min: orb.Point{160, 0}, Max: orb.Point{165, 5}}, ext)
	require.LessOrEqual(t, ext.Min.Lon(), ext.Max.Lon())
}

func TestPolygon(t *testing.T) {
	ring := orb.Ring{{0, 0}, {1, 0}, {1, 2}, {0, 0}}
	p, err := NewPolygon(ring, color.NRGBA{255, 0, 0, 128}, nil)
	require.NoError(t, err)
	require.Equal(t, 1.0, p.OutlineWidth)
	require.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 2}}, p.Extent())
	require.True(t, p.Visible())

	p.Fill = color.Transparent
	require.False(t, p.Visible())
	p.Outline = color.Black
	require.True(t, p.Visible())

	_, err = NewPolygon(orb.Ring{}, nil, nil)
	require.ErrorIs(t, err, ErrNoCoordinates)
}

func TestCircleMarkerFootprint(t *testing.T) {
	m := NewCircleMarker(orb.Point{1, 2}, color.Black, 5.6)
	require.Equal(t, orb.Point{1, 2}, m.Anchor())
	require.Equal(t, Footprint{Left: 6, Top: 6, Right: 6, Bottom: 6}, m.Footprint())
}

func TestIconMarkerFootprint(t *testing.T) {
	icon := image.NewRGBA(image.Rect(0, 0, 20, 30))
	m := NewIconMarker(orb.Point{1, 2}, icon, 10, 30)
	require.Equal(t, Footprint{Left: 10, Top: 30, Right: 10, Bottom: 0}, m.Footprint())

	var mk Marker = m
	_, isCircle := mk.(*CircleMarker)
	require.False(t, isCircle)
}

func TestDecodeIconMarker(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 8, 12))))

	m, err := DecodeIconMarker(orb.Point{0, 0}, &buf, 4, 12)
	require.NoError(t, err)
	require.Equal(t, image.Pt(8, 12), m.Icon.Bounds().Size())

	_, err = DecodeIconMarker(orb.Point{}, bytes.NewReader([]byte("garbage")), 0, 0)
	require.ErrorIs(t, err, image.ErrFormat)

	_, err = LoadIconMarker(orb.Point{}, "does-not-exist.png", 0, 0)
	require.Error(t, err)
}
