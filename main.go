package main

import (
	"context"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/olablt/staticmap/features"
	"github.com/olablt/staticmap/logging"
	"github.com/olablt/staticmap/mapview"
	"github.com/olablt/staticmap/tiles"
	"github.com/paulmach/orb"
	metrics "github.com/rcrowley/go-metrics"
)

type CLI struct {
	Config kong.ConfigFlag `help:"YAML file with default flag values" placeholder:"<path>"`
	Output string          `short:"o" default:"map.png" help:"output PNG file, - for stdout" placeholder:"<path>"`

	Width       int               `default:"800" help:"image width in pixels"`
	Height      int               `default:"600" help:"image height in pixels"`
	PaddingX    int               `name:"padding-x" help:"horizontal margin kept free of features"`
	PaddingY    int               `name:"padding-y" help:"vertical margin kept free of features"`
	URLTemplate string            `name:"url-template" default:"${url_template}" help:"tile URL with {z}, {x} and {y}"`
	Mirror      string            `help:"fallback tile URL template used when the primary server fails"`
	TileSize    int               `name:"tile-size" default:"256" help:"tile edge in pixels"`
	Timeout     time.Duration     `default:"30s" help:"per tile request timeout"`
	Header      map[string]string `help:"extra request header" placeholder:"KEY=VALUE"`
	TMS         bool              `name:"tms" help:"tile server numbers rows from the south"`
	Background  string            `default:"white" help:"colour behind the tiles"`
	RetryDelay  time.Duration     `name:"retry-delay" help:"pause between tile download rounds"`
	Concurrency int               `default:"4" help:"parallel tile downloads"`
	Attempts    int               `default:"3" help:"tile download rounds"`
	Offline     bool              `help:"draw labelled placeholder tiles instead of downloading"`

	Zoom   int    `default:"-1" help:"fixed zoom level, -1 to fit the features"`
	Center string `help:"map centre" placeholder:"LON,LAT"`

	Stroke      string  `help:"default line colour"`
	StrokeWidth float64 `name:"stroke-width" default:"2" help:"default line width"`
	Fill        string  `help:"default polygon fill colour"`
	MarkerColor string  `name:"marker-color" help:"default marker colour"`
	Simplify    bool    `help:"simplify lines and polygons unless a feature says otherwise"`

	Stats bool           `help:"print tile download statistics"`
	Log   logging.Config `embed:"" prefix:"log-"`

	Files []string `arg:"" optional:"" help:"GeoJSON files, - for stdin" placeholder:"<file>"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("staticmap"),
		kong.Description("Render GeoJSON features on top of map tiles into a PNG image."),
		kong.HelpOptions{NoAppSummary: false, Compact: true, FlagsLast: true},
		kong.UsageOnError(),
		kong.Configuration(yamlConfig),
		kong.Vars{"url_template": tiles.DefaultURLTemplate},
	)
	ctx.FatalIfErrorf(cli.Run())
}

func (cli *CLI) Run() error {
	logger, closer, err := logging.New(cli.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	registry := metrics.NewRegistry()
	opts, err := cli.options(logger, registry)
	if err != nil {
		return err
	}
	mv, err := mapview.New(cli.Width, cli.Height, opts...)
	if err != nil {
		return err
	}
	if err := cli.load(mv); err != nil {
		return err
	}

	renderOpts, err := cli.renderOptions()
	if err != nil {
		return err
	}
	start := time.Now()
	res, err := mv.Render(ctx, renderOpts...)
	if err != nil {
		return err
	}
	if err := writePNG(cli.Output, res); err != nil {
		return err
	}
	b := res.Bound()
	logger.Info("map written", "output", cli.Output, "zoom", res.Zoom,
		"west", b.Left(), "south", b.Bottom(), "east", b.Right(), "north", b.Top(),
		"elapsed", time.Since(start))

	if cli.Stats {
		printStats(os.Stderr, res, registry)
	}
	return nil
}

func (cli *CLI) options(logger *slog.Logger, registry metrics.Registry) ([]mapview.Option, error) {
	bg, err := features.ParseColor(cli.Background)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	opts := []mapview.Option{
		mapview.WithPadding(cli.PaddingX, cli.PaddingY),
		mapview.WithURLTemplate(cli.URLTemplate),
		mapview.WithTileSize(cli.TileSize),
		mapview.WithTimeout(cli.Timeout),
		mapview.WithHeaders(cli.Header),
		mapview.WithReverseY(cli.TMS),
		mapview.WithBackground(bg),
		mapview.WithRetryDelay(cli.RetryDelay),
		mapview.WithConcurrency(cli.Concurrency),
		mapview.WithMaxAttempts(cli.Attempts),
		mapview.WithLogger(logger),
		mapview.WithMetrics(registry),
	}

	switch {
	case cli.Offline:
		p := tiles.NewLocalTileProvider(cli.TileSize, nil)
		p.SetLabel(true)
		opts = append(opts, mapview.WithTileProvider(p))
	case cli.Mirror != "":
		primary := cli.httpProvider(cli.URLTemplate, logger)
		mirror := cli.httpProvider(cli.Mirror, logger)
		opts = append(opts, mapview.WithTileProvider(tiles.NewCombinedTileProvider(primary, mirror)))
	}
	return opts, nil
}

func (cli *CLI) httpProvider(template string, logger *slog.Logger) *tiles.HTTPTileProvider {
	p := tiles.NewHTTPTileProvider(nil, template)
	p.SetHeaders(cli.Header)
	p.SetTimeout(cli.Timeout)
	p.SetReverseY(cli.TMS)
	p.SetLogger(logger)
	return p
}

func (cli *CLI) style() (features.Style, error) {
	style := features.DefaultStyle
	style.StrokeWidth = cli.StrokeWidth
	style.Simplify = cli.Simplify
	for _, c := range []struct {
		name  string
		value string
		dst   *color.Color
	}{
		{"stroke", cli.Stroke, &style.Stroke},
		{"fill", cli.Fill, &style.Fill},
		{"marker-color", cli.MarkerColor, &style.MarkerColor},
	} {
		if c.value == "" {
			continue
		}
		parsed, err := features.ParseColor(c.value)
		if err != nil {
			return style, fmt.Errorf("%s: %w", c.name, err)
		}
		*c.dst = parsed
	}
	return style, nil
}

func (cli *CLI) load(mv *mapview.MapView) error {
	style, err := cli.style()
	if err != nil {
		return err
	}
	for _, name := range cli.Files {
		ld := &features.Loader{Style: style, BaseDir: filepath.Dir(name)}
		var r io.Reader = os.Stdin
		if name != "-" {
			f, err := os.Open(name)
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		} else {
			ld.BaseDir = "."
		}
		c, err := ld.Read(r)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		mv.AddCollection(c)
	}
	return nil
}

func (cli *CLI) renderOptions() ([]mapview.RenderOption, error) {
	var ret []mapview.RenderOption
	if cli.Zoom >= 0 {
		ret = append(ret, mapview.WithZoom(cli.Zoom))
	}
	if cli.Center != "" {
		c, err := parseLonLat(cli.Center)
		if err != nil {
			return nil, fmt.Errorf("center: %w", err)
		}
		ret = append(ret, mapview.WithCenter(c))
	}
	return ret, nil
}

func parseLonLat(s string) (orb.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("want LON,LAT, got %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, err
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{lon, lat}, nil
}

func writePNG(name string, res *mapview.Result) error {
	if name == "-" {
		return png.Encode(os.Stdout, res.Image)
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, res.Image); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
