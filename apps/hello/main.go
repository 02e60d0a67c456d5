package main

import (
	"context"
	"image/color"
	"image/png"
	"log/slog"
	"os"

	"github.com/olablt/staticmap/features"
	"github.com/olablt/staticmap/mapview"
	"github.com/paulmach/orb"
)

func main() {
	mv, err := mapview.New(300, 400, mapview.WithPadding(10, 10))
	if err != nil {
		slog.Error("creating map", "error", err)
		os.Exit(1)
	}

	// Berlin to Paris
	line, err := features.NewLine(orb.LineString{{13.4, 52.5}, {2.3, 48.9}}, color.NRGBA{0, 0, 255, 255}, 3)
	if err != nil {
		slog.Error("creating line", "error", err)
		os.Exit(1)
	}
	mv.AddLine(line)

	res, err := mv.Render(context.Background())
	if err != nil {
		slog.Error("rendering", "error", err)
		os.Exit(1)
	}

	f, err := os.Create("map.png")
	if err != nil {
		slog.Error("creating output", "error", err)
		os.Exit(1)
	}
	err = png.Encode(f, res.Image)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		slog.Error("writing png", "error", err)
		os.Exit(1)
	}
	slog.Info("map.png written", "zoom", res.Zoom)
}
