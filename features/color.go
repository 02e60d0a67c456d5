package features

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/mazznoer/csscolorparser"
)

// ParseColor parses a CSS color: a name ("blue"), a hex form ("#f00",
// "#ff000080") or a functional form ("rgba(255,0,0,0.5)").
func ParseColor(s string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty color")
	}
	c, err := csscolorparser.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b, a := c.RGBA255()
	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

// WithOpacity scales the alpha of c by opacity in [0,1].
func WithOpacity(c color.Color, opacity float64) color.Color {
	if opacity >= 1 {
		return c
	}
	if opacity < 0 {
		opacity = 0
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(float64(n.A)*opacity + 0.5)
	return n
}

// IsTransparent reports whether c is nil or has zero alpha.
func IsTransparent(c color.Color) bool {
	if c == nil {
		return true
	}
	_, _, _, a := c.RGBA()
	return a == 0
}
