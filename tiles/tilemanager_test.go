package tiles

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/require"
)

// scriptedProvider fails each tile a fixed number of times before serving it.
type scriptedProvider struct {
	mu       sync.Mutex
	failures map[Tile]int // remaining failures, -1 fails forever
	calls    map[Tile]int
	status   int
	inFlight int
	peak     int
	delay    time.Duration
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{failures: map[Tile]int{}, calls: map[Tile]int{}, status: 503}
}

func (p *scriptedProvider) GetTileURL(tile Tile) string {
	tile = tile.Wrap()
	return fmt.Sprintf("http://tiles/%d/%d/%d.png", tile.Zoom, tile.X, tile.Y)
}

func (p *scriptedProvider) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	p.mu.Lock()
	p.calls[tile]++
	p.inFlight++
	p.peak = max(p.peak, p.inFlight)
	remaining := p.failures[tile]
	if remaining > 0 {
		p.failures[tile] = remaining - 1
	}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if remaining != 0 {
		return nil, &StatusError{URL: p.GetTileURL(tile), StatusCode: p.status}
	}
	return image.NewRGBA(image.Rect(0, 0, TileSize, TileSize)), nil
}

func (p *scriptedProvider) callsFor(tile Tile) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[tile]
}

func tileGrid(zoom, w, h int) []Tile {
	var ret []Tile
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			ret = append(ret, Tile{X: x, Y: y, Zoom: zoom})
		}
	}
	return ret
}

func TestFetchAllSucceed(t *testing.T) {
	p := newScriptedProvider()
	p.delay = 5 * time.Millisecond
	tm := NewTileManager(p)

	placements := tileGrid(4, 4, 3)
	applied := map[Tile]int{}
	stats, err := tm.Fetch(context.Background(), placements, func(tile Tile, img image.Image) {
		require.NotNil(t, img)
		applied[tile]++
	})
	require.NoError(t, err)
	require.Equal(t, FetchStats{Tiles: 12, Rounds: 1, Requests: 12}, stats)
	require.Len(t, applied, 12)
	require.LessOrEqual(t, p.peak, DefaultConcurrency)
	require.Equal(t, int64(12), tm.Metrics().Get("tiles.requests").(metrics.Counter).Count())
}

func TestFetchRetriesFailedTiles(t *testing.T) {
	p := newScriptedProvider()
	flaky := Tile{X: 1, Y: 1, Zoom: 3}
	p.failures[flaky] = 2
	tm := NewTileManager(p)

	applied := map[Tile]bool{}
	stats, err := tm.Fetch(context.Background(), tileGrid(3, 2, 2), func(tile Tile, img image.Image) {
		applied[tile] = true
	})
	require.NoError(t, err)
	require.Equal(t, 3, stats.Rounds)
	require.Equal(t, 4+1+1, stats.Requests)
	require.Equal(t, 2, stats.Failures)
	require.Len(t, applied, 4)

	// successful tiles are not requested again
	require.Equal(t, 1, p.callsFor(Tile{X: 0, Y: 0, Zoom: 3}))
	require.Equal(t, 3, p.callsFor(flaky))
}

func TestFetchEveryTileFailsTwice(t *testing.T) {
	p := newScriptedProvider()
	grid := tileGrid(3, 3, 2)
	for _, tile := range grid {
		p.failures[tile] = 2
	}
	tm := NewTileManager(p)

	applied := map[Tile]int{}
	stats, err := tm.Fetch(context.Background(), grid, func(tile Tile, img image.Image) {
		require.NotNil(t, img)
		applied[tile]++
	})
	require.NoError(t, err)
	require.Equal(t, DefaultMaxAttempts, stats.Rounds)
	require.Equal(t, 3*len(grid), stats.Requests)
	require.Equal(t, 2*len(grid), stats.Failures)
	require.Len(t, applied, len(grid))
	for _, tile := range grid {
		require.Equal(t, 1, applied[tile])
		require.Equal(t, 3, p.callsFor(tile))
	}
}

func TestFetchExhausted(t *testing.T) {
	p := newScriptedProvider()
	bad := []Tile{{X: 2, Y: 0, Zoom: 2}, {X: 0, Y: 1, Zoom: 2}}
	for _, tile := range bad {
		p.failures[tile] = -1
	}
	tm := NewTileManager(p)

	applied := 0
	stats, err := tm.Fetch(context.Background(), tileGrid(2, 3, 2), func(Tile, image.Image) {
		applied++
	})
	require.ErrorIs(t, err, ErrTileFetchExhausted)
	require.Equal(t, DefaultMaxAttempts, stats.Rounds)
	require.Equal(t, 4, applied)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, DefaultMaxAttempts, fe.Rounds)
	require.Len(t, fe.Failures, 2)
	require.Equal(t, "http://tiles/2/0/1.png", fe.Failures[0].URL)
	require.Equal(t, "http://tiles/2/2/0.png", fe.Failures[1].URL)
	require.Equal(t, 503, fe.Failures[0].Status)
	require.Contains(t, err.Error(), "http://tiles/2/2/0.png (status 503)")

	for _, tile := range bad {
		require.Equal(t, DefaultMaxAttempts, p.callsFor(tile))
	}
}

func TestFetchMaxAttempts(t *testing.T) {
	p := newScriptedProvider()
	tile := Tile{Zoom: 0}
	p.failures[tile] = -1
	tm := NewTileManager(p)
	tm.SetMaxAttempts(5)

	_, err := tm.Fetch(context.Background(), []Tile{tile}, func(Tile, image.Image) {})
	require.ErrorIs(t, err, ErrTileFetchExhausted)
	require.Equal(t, 5, p.callsFor(tile))
}

func TestFetchDeduplicatesWrappedTiles(t *testing.T) {
	p := newScriptedProvider()
	tm := NewTileManager(p)

	// zoom 1 is two tiles wide; a wide canvas repeats them
	placements := []Tile{
		{X: -1, Y: 0, Zoom: 1}, {X: 0, Y: 0, Zoom: 1}, {X: 1, Y: 0, Zoom: 1}, {X: 2, Y: 0, Zoom: 1},
	}
	var applied []Tile
	stats, err := tm.Fetch(context.Background(), placements, func(tile Tile, img image.Image) {
		applied = append(applied, tile)
	})
	require.NoError(t, err)
	require.Equal(t, 2, stats.Tiles)
	require.Equal(t, 2, stats.Requests)
	require.ElementsMatch(t, placements, applied)
	require.Equal(t, 1, p.callsFor(Tile{X: 1, Y: 0, Zoom: 1}))
}

func TestFetchRetryDelay(t *testing.T) {
	p := newScriptedProvider()
	tile := Tile{Zoom: 0}
	p.failures[tile] = 1
	tm := NewTileManager(p)
	tm.SetRetryDelay(30 * time.Millisecond)

	start := time.Now()
	_, err := tm.Fetch(context.Background(), []Tile{tile}, func(Tile, image.Image) {})
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestFetchBackOffStop(t *testing.T) {
	p := newScriptedProvider()
	tile := Tile{Zoom: 0}
	p.failures[tile] = -1
	tm := NewTileManager(p)
	tm.SetBackOff(&backoff.StopBackOff{})

	stats, err := tm.Fetch(context.Background(), []Tile{tile}, func(Tile, image.Image) {})
	require.ErrorIs(t, err, ErrTileFetchExhausted)
	require.Equal(t, 1, stats.Rounds)
	require.Equal(t, 1, p.callsFor(tile))
}

func TestFetchCancelled(t *testing.T) {
	p := newScriptedProvider()
	tile := Tile{Zoom: 0}
	p.failures[tile] = -1
	tm := NewTileManager(p)
	tm.SetRetryDelay(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := tm.Fetch(ctx, []Tile{tile}, func(Tile, image.Image) {})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, p.callsFor(tile))
}

// cancelProvider cancels the fetch from inside the first request.
type cancelProvider struct {
	*scriptedProvider
	cancel context.CancelFunc
}

func (p *cancelProvider) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	p.cancel()
	return p.scriptedProvider.GetTile(ctx, tile)
}

func TestFetchSkipsQueuedTilesAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &cancelProvider{scriptedProvider: newScriptedProvider(), cancel: cancel}
	tm := NewTileManager(p)
	tm.SetConcurrency(1)

	applied := 0
	_, err := tm.Fetch(ctx, tileGrid(2, 4, 1), func(Tile, image.Image) { applied++ })
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, applied)

	calls := 0
	for _, tile := range tileGrid(2, 4, 1) {
		calls += p.callsFor(tile)
	}
	require.Equal(t, 1, calls)
}

func TestFetchSharedRegistry(t *testing.T) {
	r := metrics.NewRegistry()
	for i := 0; i < 2; i++ {
		tm := NewTileManager(newScriptedProvider())
		tm.SetRegistry(r)
		_, err := tm.Fetch(context.Background(), tileGrid(1, 2, 1), func(Tile, image.Image) {})
		require.NoError(t, err)
	}
	require.Equal(t, int64(4), r.Get("tiles.requests").(metrics.Counter).Count())
	require.Equal(t, int64(4), r.Get("tiles.fetch").(metrics.Timer).Count())
}

func TestGetTileKey(t *testing.T) {
	require.Equal(t, "7/12/34", GetTileKey(Tile{X: 12, Y: 34, Zoom: 7}))
}
