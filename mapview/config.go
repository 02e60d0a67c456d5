package mapview

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/olablt/staticmap/tiles"
	metrics "github.com/rcrowley/go-metrics"
)

var ErrInvalidConfig = errors.New("invalid map configuration")

// Config holds the construction parameters of a MapView.
type Config struct {
	Width, Height      int
	PaddingX, PaddingY int // pixels kept free of features at the canvas edges
	URLTemplate        string
	TileSize           int
	Timeout            time.Duration // per tile request, zero means none
	Headers            map[string]string
	ReverseY           bool // TMS row numbering
	Background         color.Color
	RetryDelay         time.Duration
	Concurrency        int
	MaxAttempts        int

	client   tiles.Doer
	provider tiles.TileProvider
	backOff  backoff.BackOff
	logger   *slog.Logger
	registry metrics.Registry
}

type Option func(*Config)

func defaultConfig(width, height int) Config {
	return Config{
		Width:       width,
		Height:      height,
		URLTemplate: tiles.DefaultURLTemplate,
		TileSize:    tiles.TileSize,
		Background:  color.White,
		Concurrency: tiles.DefaultConcurrency,
		MaxAttempts: tiles.DefaultMaxAttempts,
		logger:      slog.Default(),
	}
}

func (c *Config) validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: size %dx%d must be positive", ErrInvalidConfig, c.Width, c.Height)
	case c.PaddingX < 0 || c.PaddingY < 0:
		return fmt.Errorf("%w: negative padding", ErrInvalidConfig)
	case c.TileSize <= 0:
		return fmt.Errorf("%w: tile size %d", ErrInvalidConfig, c.TileSize)
	case c.Concurrency <= 0:
		return fmt.Errorf("%w: concurrency %d", ErrInvalidConfig, c.Concurrency)
	case c.MaxAttempts <= 0:
		return fmt.Errorf("%w: max attempts %d", ErrInvalidConfig, c.MaxAttempts)
	case c.RetryDelay < 0 || c.Timeout < 0:
		return fmt.Errorf("%w: negative duration", ErrInvalidConfig)
	}
	return nil
}

// WithPadding reserves a margin of x pixels left and right and y pixels at
// the top and bottom.
func WithPadding(x, y int) Option {
	return func(c *Config) { c.PaddingX, c.PaddingY = x, y }
}

func WithURLTemplate(template string) Option {
	return func(c *Config) { c.URLTemplate = template }
}

func WithTileSize(size int) Option {
	return func(c *Config) { c.TileSize = size }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

func WithHeaders(headers map[string]string) Option {
	return func(c *Config) { c.Headers = headers }
}

func WithReverseY(flag bool) Option {
	return func(c *Config) { c.ReverseY = flag }
}

func WithBackground(bg color.Color) Option {
	return func(c *Config) { c.Background = bg }
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Config) { c.RetryDelay = d }
}

// WithBackOff replaces the constant RetryDelay between fetch rounds.
func WithBackOff(b backoff.BackOff) Option {
	return func(c *Config) { c.backOff = b }
}

func WithConcurrency(n int) Option {
	return func(c *Config) { c.Concurrency = n }
}

func WithMaxAttempts(n int) Option {
	return func(c *Config) { c.MaxAttempts = n }
}

// WithHTTPClient sets the client used by the default HTTP tile provider.
func WithHTTPClient(client tiles.Doer) Option {
	return func(c *Config) { c.client = client }
}

// WithTileProvider replaces the HTTP tile provider. URLTemplate, Headers,
// Timeout, ReverseY and the HTTP client are then ignored.
func WithTileProvider(p tiles.TileProvider) Option {
	return func(c *Config) { c.provider = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.logger = l }
}

// WithMetrics registers the tile fetch counters in r.
func WithMetrics(r metrics.Registry) Option {
	return func(c *Config) { c.registry = r }
}

func (c *Config) tileProvider() tiles.TileProvider {
	if c.provider != nil {
		return c.provider
	}
	p := tiles.NewHTTPTileProvider(c.client, c.URLTemplate)
	p.SetHeaders(c.Headers)
	p.SetTimeout(c.Timeout)
	p.SetReverseY(c.ReverseY)
	p.SetLogger(c.logger)
	return p
}

func (c *Config) tileManager() *tiles.TileManager {
	tm := tiles.NewTileManager(c.tileProvider())
	tm.SetConcurrency(c.Concurrency)
	tm.SetMaxAttempts(c.MaxAttempts)
	tm.SetRetryDelay(c.RetryDelay)
	if c.backOff != nil {
		tm.SetBackOff(c.backOff)
	}
	if c.registry != nil {
		tm.SetRegistry(c.registry)
	}
	tm.SetLogger(c.logger)
	return tm
}
