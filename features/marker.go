package features

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/paulmach/orb"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Footprint is the space a marker occupies around its anchor, in pixels.
type Footprint struct {
	Left, Top, Right, Bottom int
}

// Marker is either a *CircleMarker or an *IconMarker.
type Marker interface {
	Anchor() orb.Point
	Footprint() Footprint
	isMarker()
}

// CircleMarker is a filled circle centred on its coordinate.
type CircleMarker struct {
	Coord  orb.Point
	Color  color.Color
	Radius float64 // pixels
}

func NewCircleMarker(coord orb.Point, c color.Color, radius float64) *CircleMarker {
	return &CircleMarker{Coord: coord, Color: c, Radius: radius}
}

func (m *CircleMarker) Anchor() orb.Point { return m.Coord }

func (m *CircleMarker) Footprint() Footprint {
	r := int(m.Radius + 0.5)
	return Footprint{Left: r, Top: r, Right: r, Bottom: r}
}

func (*CircleMarker) isMarker() {}

// IconMarker pastes an image so that the pixel at (OffsetX, OffsetY),
// measured from the icon's top-left corner, lies on the coordinate.
type IconMarker struct {
	Coord            orb.Point
	Icon             image.Image
	OffsetX, OffsetY int
}

func NewIconMarker(coord orb.Point, icon image.Image, offsetX, offsetY int) *IconMarker {
	return &IconMarker{Coord: coord, Icon: icon, OffsetX: offsetX, OffsetY: offsetY}
}

// DecodeIconMarker decodes the icon once; the marker keeps the decoded image.
func DecodeIconMarker(coord orb.Point, r io.Reader, offsetX, offsetY int) (*IconMarker, error) {
	icon, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding icon: %w", err)
	}
	return NewIconMarker(coord, icon, offsetX, offsetY), nil
}

func LoadIconMarker(coord orb.Point, path string, offsetX, offsetY int) (*IconMarker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := DecodeIconMarker(coord, f, offsetX, offsetY)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func (m *IconMarker) Anchor() orb.Point { return m.Coord }

func (m *IconMarker) Footprint() Footprint {
	size := m.Icon.Bounds().Size()
	return Footprint{
		Left:   m.OffsetX,
		Top:    m.OffsetY,
		Right:  size.X - m.OffsetX,
		Bottom: size.Y - m.OffsetY,
	}
}

func (*IconMarker) isMarker() {}
