package tiles

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LocalTileProvider paints tiles without any network access: a solid
// background, optionally labelled with the tile address and framed.
type LocalTileProvider struct {
	size       int
	background color.Color
	label      bool
}

func NewLocalTileProvider(size int, background color.Color) *LocalTileProvider {
	if size <= 0 {
		size = TileSize
	}
	if background == nil {
		background = color.RGBA{200, 220, 255, 255}
	}
	return &LocalTileProvider{size: size, background: background}
}

// SetLabel enables the z/x/y caption and the tile border.
func (p *LocalTileProvider) SetLabel(flag bool) {
	p.label = flag
}

func (p *LocalTileProvider) GetTileURL(tile Tile) string {
	tile = tile.Wrap()
	return fmt.Sprintf("local://%d/%d/%d", tile.Zoom, tile.X, tile.Y)
}

func (p *LocalTileProvider) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, p.size, p.size))
	draw.Draw(img, img.Bounds(), &image.Uniform{p.background}, image.Point{}, draw.Src)
	if !p.label {
		return img, nil
	}

	drawText(img, tile.Wrap())

	s := p.size
	borderColor := color.RGBA{100, 100, 100, 255}
	borders := []image.Rectangle{
		image.Rect(0, 0, s, 1),   // Top
		image.Rect(0, s-1, s, s), // Bottom
		image.Rect(0, 0, 1, s),   // Left
		image.Rect(s-1, 0, s, s), // Right
	}
	for _, rect := range borders {
		draw.Draw(img, rect, &image.Uniform{borderColor}, image.Point{}, draw.Src)
	}
	return img, nil
}

func drawText(img *image.RGBA, tile Tile) {
	text := fmt.Sprintf("%d/%d/%d", tile.Zoom, tile.X, tile.Y)
	size := img.Bounds().Dx()

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}

	textWidth := d.MeasureString(text).Round()
	textHeight := face.Metrics().Height.Round()

	padding := 10
	mid := size / 2
	textBgRect := image.Rect(
		(size-textWidth)/2-padding,
		mid-textHeight/2-padding,
		(size+textWidth)/2+padding,
		mid+textHeight/2+padding,
	)
	textBgColor := color.RGBA{255, 255, 255, 220}
	draw.Draw(img, textBgRect, &image.Uniform{textBgColor}, image.Point{}, draw.Over)

	d.Dot = fixed.Point26_6{
		X: fixed.I((size - textWidth) / 2),
		Y: fixed.I(mid + textHeight/2),
	}
	d.DrawString(text)
}
