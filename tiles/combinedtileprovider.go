package tiles

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// CombinedTileProvider asks a mirror when the primary source fails. Both
// attempts belong to the same fetch round, so a tile only counts as failed
// when neither source delivered it.
type CombinedTileProvider struct {
	primary  TileProvider
	fallback TileProvider
}

func NewCombinedTileProvider(primary, fallback TileProvider) *CombinedTileProvider {
	return &CombinedTileProvider{
		primary:  primary,
		fallback: fallback,
	}
}

func (p *CombinedTileProvider) GetTileURL(tile Tile) string {
	return p.primary.GetTileURL(tile)
}

func (p *CombinedTileProvider) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	img, err := p.primary.GetTile(ctx, tile)
	if err == nil {
		return img, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	fallbackImg, fallbackErr := p.fallback.GetTile(ctx, tile)
	if fallbackErr != nil {
		return nil, fmt.Errorf("both primary and fallback providers failed: %w",
			errors.Join(err, fallbackErr))
	}
	return fallbackImg, nil
}
