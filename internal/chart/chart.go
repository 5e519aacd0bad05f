// Package chart renders per-core voltage/clock samples as a scatter plot.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"github.com/yildizm/vftail/internal/parser"
)

// ErrNoData is returned when no visible core has any sample
var ErrNoData = errors.New("no samples to plot")

// Axis names
const (
	VoltageAxis = "Voltage(V)"
	ClockAxis   = "Clock(Mhz)"
)

// Options controls chart rendering
type Options struct {
	Title  string
	Width  int
	Height int
}

// DefaultOptions returns the default chart options
func DefaultOptions() Options {
	return Options{
		Title:  "VF Chart",
		Width:  1024,
		Height: 768,
	}
}

// Series is the sample set of one core
type Series struct {
	Core    int
	Entries []parser.Entry
}

// Name is the legend label of the series
func (s Series) Name() string {
	return "Core " + strconv.Itoa(s.Core)
}

// Collect snapshots the visible feeds in core order. A nil visibility shows
// every core.
func Collect(sources map[int]parser.FeedView, vis *Visibility) []Series {
	cores := make([]int, 0, len(sources))
	for core := range sources {
		cores = append(cores, core)
	}
	slices.Sort(cores)

	series := make([]Series, 0, len(cores))
	for _, core := range cores {
		if vis != nil && !vis.Visible(core) {
			continue
		}
		series = append(series, Series{Core: core, Entries: sources[core].Snapshot()})
	}
	return series
}

// pointStyle renders dots without connecting lines
func pointStyle(col drawing.Color) gochart.Style {
	return gochart.Style{
		StrokeWidth: gochart.Disabled,
		DotWidth:    3,
		DotColor:    col,
	}
}

// Render writes a PNG scatter chart of series to w
func Render(w io.Writer, series []Series, opts Options) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		def := DefaultOptions()
		opts.Width, opts.Height = def.Width, def.Height
	}

	bounds := newBounds()
	plotted := make([]gochart.Series, 0, len(series))
	for _, s := range series {
		if len(s.Entries) == 0 {
			continue
		}
		xs := make([]float64, len(s.Entries))
		ys := make([]float64, len(s.Entries))
		for i, e := range s.Entries {
			xs[i], ys[i] = e.Voltage, e.Clock
			bounds.add(e)
		}
		plotted = append(plotted, gochart.ContinuousSeries{
			Name:    s.Name(),
			XValues: xs,
			YValues: ys,
			// Colour follows the core id so it stays stable when others are hidden.
			Style: pointStyle(gochart.GetDefaultColor(s.Core)),
		})
	}
	if len(plotted) == 0 {
		return ErrNoData
	}

	graph := gochart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:           VoltageAxis,
			Range:          bounds.xRange(),
			ValueFormatter: func(v interface{}) string { return formatFloat(v, 3) },
		},
		YAxis: gochart.YAxis{
			Name:           ClockAxis,
			Range:          bounds.yRange(),
			ValueFormatter: func(v interface{}) string { return formatFloat(v, 0) },
		},
		Series: plotted,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// RenderFile renders to a temporary file next to path and renames it into
// place, so viewers never see a half written image.
func RenderFile(path string, series []Series, opts Options) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := Render(tmp, series, opts); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move chart into place: %w", err)
	}
	return nil
}

func formatFloat(v interface{}, prec int) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', prec, 64)
	}
	return fmt.Sprint(v)
}

type bounds struct {
	minX, maxX, minY, maxY float64
}

func newBounds() *bounds {
	return &bounds{
		minX: math.Inf(1), maxX: math.Inf(-1),
		minY: math.Inf(1), maxY: math.Inf(-1),
	}
}

func (b *bounds) add(e parser.Entry) {
	b.minX = math.Min(b.minX, e.Voltage)
	b.maxX = math.Max(b.maxX, e.Voltage)
	b.minY = math.Min(b.minY, e.Clock)
	b.maxY = math.Max(b.maxY, e.Clock)
}

func (b *bounds) xRange() *gochart.ContinuousRange {
	lo, hi := pad(b.minX, b.maxX, 0.05)
	return &gochart.ContinuousRange{Min: lo, Max: hi}
}

func (b *bounds) yRange() *gochart.ContinuousRange {
	lo, hi := pad(b.minY, b.maxY, 100)
	return &gochart.ContinuousRange{Min: lo, Max: hi}
}

// pad widens [lo, hi] by 5% on each side, or by minPad around a single value.
func pad(lo, hi, minPad float64) (float64, float64) {
	span := hi - lo
	if span <= 0 {
		return math.Max(0, lo-minPad), hi + minPad
	}
	return math.Max(0, lo-span*0.05), hi + span*0.05
}
