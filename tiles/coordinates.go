package tiles

import (
	"image"
	"math"
)

const (
	TileSize           = 256
	MaxZoom            = 17
	earthCircumference = 40075016.686 // meters at equator
)

// Tile represents a map tile coordinates
type Tile struct {
	X, Y, Zoom int
}

// worldTiles returns the number of tiles along one axis at the given zoom
func worldTiles(zoom int) float64 {
	return math.Exp2(float64(zoom))
}

// floorMod is the modulo operation with a non-negative result for positive m
func floorMod(a, m float64) float64 {
	r := math.Mod(a, m)
	if r < 0 {
		r += m
	}
	return r
}

// WrapLon maps any longitude into [-180, 180)
func WrapLon(lon float64) float64 {
	return floorMod(lon+180, 360) - 180
}

// WrapLat maps any latitude into [-90, 90) using the same modular pattern as WrapLon
func WrapLat(lat float64) float64 {
	return floorMod(lat+90, 180) - 90
}

// LonToX converts a longitude to a tile-fraction x coordinate at the given zoom level
func LonToX(lon float64, zoom int) float64 {
	return ((WrapLon(lon) + 180) / 360) * worldTiles(zoom)
}

// NormalizeLon wraps a longitude outside [-180, 180] into [-180, 180).
// 180 itself is kept so a bounding box can end at the eastern edge.
func NormalizeLon(lon float64) float64 {
	if lon < -180 || lon > 180 {
		return WrapLon(lon)
	}
	return lon
}

// LonToWorldX is LonToX without wrapping, clamped to [0, 2^zoom]. 180 maps
// to 2^zoom, which keeps extent widths positive.
func LonToWorldX(lon float64, zoom int) float64 {
	n := worldTiles(zoom)
	return math.Max(0, math.Min((lon+180)/360*n, n))
}

// LatToY converts a latitude to a tile-fraction y coordinate at the given zoom level
func LatToY(lat float64, zoom int) float64 {
	latRad := WrapLat(lat) * math.Pi / 180
	return (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * worldTiles(zoom)
}

// XToLon converts a tile-fraction x coordinate back to a longitude
func XToLon(x float64, zoom int) float64 {
	return x/worldTiles(zoom)*360 - 180
}

// YToLat converts a tile-fraction y coordinate back to a latitude
func YToLat(y float64, zoom int) float64 {
	return math.Atan(math.Sinh(math.Pi*(1-2*y/worldTiles(zoom)))) / math.Pi * 180
}

// CalculateMetersPerPixel calculates the meters per pixel at a given latitude and zoom level
func CalculateMetersPerPixel(latitude float64, zoom, tileSize int) float64 {
	return earthCircumference * math.Cos(latitude*math.Pi/180) / (worldTiles(zoom) * float64(tileSize))
}

// Wrap reduces the tile indices modulo 2^zoom so that tiles left of the
// antimeridian (or above/below the world) address real tiles.
func (t Tile) Wrap() Tile {
	n := 1 << t.Zoom
	t.X = ((t.X % n) + n) % n
	t.Y = ((t.Y % n) + n) % n
	return t
}

// FlipY converts between XYZ and TMS row numbering. The tile must be wrapped.
func (t Tile) FlipY() Tile {
	t.Y = (1<<t.Zoom - 1) - t.Y
	return t
}

// CalculateVisibleTiles returns every tile overlapping a canvas of the given
// size centred on the tile-fraction coordinate (centerX, centerY). The tiles
// are not wrapped: their indices locate them on the canvas.
func CalculateVisibleTiles(centerX, centerY float64, zoom int, screenSize image.Point, tileSize int) []Tile {
	halfW := 0.5 * float64(screenSize.X) / float64(tileSize)
	halfH := 0.5 * float64(screenSize.Y) / float64(tileSize)

	minX := int(math.Floor(centerX - halfW))
	minY := int(math.Floor(centerY - halfH))
	maxX := int(math.Ceil(centerX + halfW))
	maxY := int(math.Ceil(centerY + halfH))

	visibleTiles := make([]Tile, 0, (maxX-minX)*(maxY-minY))
	for x := minX; x < maxX; x++ {
		for y := minY; y < maxY; y++ {
			visibleTiles = append(visibleTiles, Tile{X: x, Y: y, Zoom: zoom})
		}
	}
	return visibleTiles
}
