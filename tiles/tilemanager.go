package tiles

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/olablt/staticmap/tiles/worker"
	metrics "github.com/rcrowley/go-metrics"
)

const (
	DefaultConcurrency = 4
	DefaultMaxAttempts = 3
)

var ErrTileFetchExhausted = errors.New("tile fetch retries exhausted")

type TileProvider interface {
	GetTile(ctx context.Context, tile Tile) (image.Image, error)
	GetTileURL(tile Tile) string
}

// TileFailure describes the last failed attempt for a tile.
type TileFailure struct {
	Tile   Tile
	URL    string
	Status int // HTTP status, 0 when no response was received
	Err    error
}

// FetchError lists every tile still failing after the last round.
type FetchError struct {
	Rounds   int
	Failures []TileFailure
}

func (e *FetchError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		if f.Status != 0 {
			parts[i] = fmt.Sprintf("%s (status %d)", f.URL, f.Status)
		} else {
			parts[i] = fmt.Sprintf("%s (%v)", f.URL, f.Err)
		}
	}
	return fmt.Sprintf("could not download %d tile(s) after %d rounds: %s",
		len(e.Failures), e.Rounds, strings.Join(parts, ", "))
}

func (e *FetchError) Is(target error) bool {
	return target == ErrTileFetchExhausted
}

// FetchStats summarizes one Fetch call.
type FetchStats struct {
	Tiles    int // distinct wrapped tiles
	Rounds   int
	Requests int
	Failures int
}

type tileState int

const (
	statePending tileState = iota
	stateInFlight
	stateSucceeded
	stateFailed
)

type tileJob struct {
	tile       Tile   // wrapped address
	placements []Tile // canvas positions showing this tile
	state      tileState
	img        image.Image
	err        error
}

// TileManager downloads the tiles of a render in rounds. Every round sends
// all pending tiles through a bounded worker pool; failures are queued for
// the next round until the attempt limit is reached.
type TileManager struct {
	provider    TileProvider
	concurrency int
	maxAttempts int
	backOff     backoff.BackOff
	logger      *slog.Logger

	registry   metrics.Registry
	requests   metrics.Counter
	failures   metrics.Counter
	rounds     metrics.Counter
	fetchTimer metrics.Timer
}

func NewTileManager(provider TileProvider) *TileManager {
	tm := &TileManager{
		provider:    provider,
		concurrency: DefaultConcurrency,
		maxAttempts: DefaultMaxAttempts,
		backOff:     backoff.NewConstantBackOff(0),
		logger:      slog.Default(),
	}
	tm.SetRegistry(metrics.NewRegistry())
	return tm
}

// SetRegistry moves the fetch counters into r. Counters already present in r
// under the same names are shared.
func (tm *TileManager) SetRegistry(r metrics.Registry) {
	if r == nil {
		return
	}
	tm.registry = r
	tm.requests = metrics.GetOrRegisterCounter("tiles.requests", r)
	tm.failures = metrics.GetOrRegisterCounter("tiles.failures", r)
	tm.rounds = metrics.GetOrRegisterCounter("tiles.rounds", r)
	tm.fetchTimer = metrics.GetOrRegisterTimer("tiles.fetch", r)
}

func (tm *TileManager) SetConcurrency(n int) {
	if n > 0 {
		tm.concurrency = n
	}
}

func (tm *TileManager) SetMaxAttempts(n int) {
	if n > 0 {
		tm.maxAttempts = n
	}
}

// SetRetryDelay pauses for a constant delay between rounds.
func (tm *TileManager) SetRetryDelay(d time.Duration) {
	tm.backOff = backoff.NewConstantBackOff(d)
}

// SetBackOff replaces the delay policy between rounds. backoff.Stop ends
// retrying early.
func (tm *TileManager) SetBackOff(b backoff.BackOff) {
	if b != nil {
		tm.backOff = b
	}
}

func (tm *TileManager) SetLogger(l *slog.Logger) {
	if l != nil {
		tm.logger = l
	}
}

// Metrics exposes the cumulative counters of this manager.
func (tm *TileManager) Metrics() metrics.Registry {
	return tm.registry
}

// GetTileKey returns a unique string key for a tile
func GetTileKey(tile Tile) string {
	return fmt.Sprintf("%d/%d/%d", tile.Zoom, tile.X, tile.Y)
}

// Fetch downloads the given canvas tiles. Tiles wrapping onto the same
// address are requested once. apply is called on the calling goroutine,
// once per placement, as soon as the round that fetched it completes.
func (tm *TileManager) Fetch(ctx context.Context, placements []Tile, apply func(Tile, image.Image)) (FetchStats, error) {
	jobs := tm.plan(placements)
	stats := FetchStats{Tiles: len(jobs)}
	if len(jobs) == 0 {
		return stats, nil
	}

	pool := worker.NewPool(tm.concurrency)
	defer pool.Shutdown()
	tm.backOff.Reset()

	for round := 1; round <= tm.maxAttempts; round++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		batch := pendingJobs(jobs)
		if len(batch) == 0 {
			break
		}
		if round > 1 {
			stop, err := tm.pause(ctx)
			if err != nil {
				return stats, err
			}
			if stop {
				break
			}
		}

		stats.Rounds++
		stats.Requests += len(batch)
		tm.rounds.Inc(1)
		tm.requests.Inc(int64(len(batch)))

		for _, job := range batch {
			job.state = stateInFlight
			job.img, job.err = nil, nil
			pool.Submit(worker.Task{Ctx: ctx, Work: tm.download(ctx, job)})
		}
		roundErr := pool.Wait()
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if roundErr != nil {
			tm.logger.Debug("tile round finished with failures", "round", round, "error", roundErr)
		}

		for _, job := range batch {
			if job.err != nil {
				job.state = stateFailed
				stats.Failures++
				tm.failures.Inc(1)
				tm.logger.Warn("tile download failed",
					"url", tm.provider.GetTileURL(job.tile), "round", round, "error", job.err)
				continue
			}
			job.state = stateSucceeded
			for _, p := range job.placements {
				apply(p, job.img)
			}
			job.img = nil
		}
	}

	if failed := pendingJobs(jobs); len(failed) > 0 {
		return stats, tm.fetchError(stats.Rounds, failed)
	}
	return stats, nil
}

// plan groups canvas tiles by their wrapped address, keeping the canvas order.
func (tm *TileManager) plan(placements []Tile) []*tileJob {
	var jobs []*tileJob
	byKey := map[Tile]*tileJob{}
	for _, p := range placements {
		addr := p.Wrap()
		job, ok := byKey[addr]
		if !ok {
			job = &tileJob{tile: addr}
			byKey[addr] = job
			jobs = append(jobs, job)
		}
		job.placements = append(job.placements, p)
	}
	return jobs
}

func pendingJobs(jobs []*tileJob) []*tileJob {
	var ret []*tileJob
	for _, job := range jobs {
		if job.state == statePending || job.state == stateFailed {
			ret = append(ret, job)
		}
	}
	return ret
}

// download returns the work of one request. Each job is written by exactly
// one task per round, so no locking is needed.
func (tm *TileManager) download(ctx context.Context, job *tileJob) func() error {
	return func() error {
		start := time.Now()
		defer tm.fetchTimer.UpdateSince(start)

		img, err := tm.provider.GetTile(ctx, job.tile)
		if err == nil && img == nil {
			err = errors.New("provider returned no image")
		}
		job.img, job.err = img, err
		return err
	}
}

// pause waits before the next round. stop reports that the back-off policy
// gave up.
func (tm *TileManager) pause(ctx context.Context) (stop bool, err error) {
	delay := tm.backOff.NextBackOff()
	if delay == backoff.Stop {
		return true, nil
	}
	if delay <= 0 {
		return false, nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
		return false, nil
	}
}

func (tm *TileManager) fetchError(rounds int, failed []*tileJob) error {
	ret := &FetchError{Rounds: rounds}
	for _, job := range failed {
		f := TileFailure{
			Tile: job.tile,
			URL:  tm.provider.GetTileURL(job.tile),
			Err:  job.err,
		}
		var se *StatusError
		if errors.As(job.err, &se) {
			f.Status = se.StatusCode
		}
		ret.Failures = append(ret.Failures, f)
	}
	sort.Slice(ret.Failures, func(i, j int) bool {
		return GetTileKey(ret.Failures[i].Tile) < GetTileKey(ret.Failures[j].Tile)
	})
	return ret
}
