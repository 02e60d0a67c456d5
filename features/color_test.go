package features

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"blue", color.NRGBA{0, 0, 255, 255}},
		{"#f00", color.NRGBA{255, 0, 0, 255}},
		{"#00ff0080", color.NRGBA{0, 255, 0, 128}},
		{" rgb(1, 2, 3) ", color.NRGBA{1, 2, 3, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := ParseColor("")
	require.Error(t, err)
	_, err = ParseColor("not-a-colour")
	require.Error(t, err)
}

func TestWithOpacity(t *testing.T) {
	c := color.NRGBA{10, 20, 30, 200}
	require.Equal(t, color.Color(c), WithOpacity(c, 1))
	require.Equal(t, color.NRGBA{10, 20, 30, 100}, WithOpacity(c, 0.5))
	require.Equal(t, color.NRGBA{10, 20, 30, 0}, WithOpacity(c, -1))
}

func TestIsTransparent(t *testing.T) {
	require.True(t, IsTransparent(nil))
	require.True(t, IsTransparent(color.Transparent))
	require.True(t, IsTransparent(color.NRGBA{255, 0, 0, 0}))
	require.False(t, IsTransparent(color.NRGBA{0, 0, 0, 1}))
	require.False(t, IsTransparent(color.Black))
}
