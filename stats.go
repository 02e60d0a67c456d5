package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/olablt/staticmap/mapview"
	metrics "github.com/rcrowley/go-metrics"
)

func printStats(w io.Writer, res *mapview.Result, registry metrics.Registry) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"NAME", "VALUE"})

	c := res.Center()
	t.AppendRow(table.Row{"zoom", res.Zoom})
	t.AppendRow(table.Row{"center", fmt.Sprintf("%.6f,%.6f", c.Lon(), c.Lat())})
	t.AppendRow(table.Row{"meters/pixel", fmt.Sprintf("%.3f", res.MetersPerPixel())})
	t.AppendRow(table.Row{"tiles", res.Stats.Tiles})
	t.AppendRow(table.Row{"rounds", res.Stats.Rounds})
	t.AppendRow(table.Row{"requests", res.Stats.Requests})
	t.AppendRow(table.Row{"failures", res.Stats.Failures})
	t.AppendSeparator()
	for _, row := range metricRows(registry) {
		t.AppendRow(row)
	}
	t.Render()
}

func metricRows(registry metrics.Registry) []table.Row {
	var names []string
	all := map[string]any{}
	registry.Each(func(name string, m any) {
		names = append(names, name)
		all[name] = m
	})
	sort.Strings(names)

	var rows []table.Row
	for _, name := range names {
		switch m := all[name].(type) {
		case metrics.Counter:
			rows = append(rows, table.Row{name, m.Count()})
		case metrics.Timer:
			s := m.Snapshot()
			rows = append(rows,
				table.Row{name + ".count", s.Count()},
				table.Row{name + ".mean", time.Duration(s.Mean()).Round(time.Microsecond)},
				table.Row{name + ".p99", time.Duration(s.Percentile(0.99)).Round(time.Microsecond)},
				table.Row{name + ".max", time.Duration(s.Max())},
			)
		}
	}
	return rows
}
