package chart

import (
	"fmt"
	"io"
	"strings"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/rileyhilliard/streamwatch/internal/errors"
)

// Format selects the encoding Export writes.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat accepts "svg" or "png" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatSVG:
		return FormatSVG, nil
	case FormatPNG:
		return FormatPNG, nil
	}
	return "", errors.New(errors.ErrRender,
		fmt.Sprintf("Unknown export format %q", s),
		"Use one of: svg, png")
}

// Extension returns the file extension for the format, with the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Export draws the scene with go-chart. Latency uses the left axis and users
// the right one, with the same domains the scene was laid out with.
func Export(w io.Writer, scene Scene, format Format) error {
	if scene.Empty() || (scene.LatencyLine.Len() == 0 && scene.UsersLine.Len() == 0) {
		return errors.New(errors.ErrRender,
			"Nothing to export yet",
			"Wait for at least one sample before exporting the chart")
	}

	var provider gochart.RendererProvider
	switch format {
	case FormatSVG:
		provider = gochart.SVG
	case FormatPNG:
		provider = gochart.PNG
	default:
		return errors.New(errors.ErrRender,
			fmt.Sprintf("Unknown export format %q", format),
			"Use one of: svg, png")
	}

	c := exportChart(scene)
	if err := c.Render(provider, w); err != nil {
		return errors.WrapWithCode(err, errors.ErrRender,
			"Couldn't draw the chart",
			"Run with STREAMWATCH_DEBUG=1 for details")
	}
	return nil
}

func exportChart(scene Scene) gochart.Chart {
	layout := scene.Layout

	xMin, xMax := paddedTimeRange(scene.X)
	interval := time.Duration(0)
	if ticks, iv := scene.X.Ticks(axisTickCount); len(ticks) > 0 {
		interval = iv
	}

	c := gochart.Chart{
		Width:  int(layout.Width),
		Height: int(layout.Height),
		Background: gochart.Style{
			Padding: gochart.Box{
				Top:    int(layout.Margin.Top),
				Right:  int(layout.Margin.Right),
				Bottom: int(layout.Margin.Bottom),
				Left:   int(layout.Margin.Left),
			},
		},
		XAxis: gochart.XAxis{
			Range: &gochart.ContinuousRange{Min: xMin, Max: xMax},
			ValueFormatter: func(v interface{}) string {
				f, ok := v.(float64)
				if !ok {
					return ""
				}
				return FormatTime(gochart.TimeFromFloat64(f).In(scene.X.Domain[0].Location()), interval)
			},
		},
		YAxis: gochart.YAxis{
			Name:  UsersTitle,
			Range: paddedRange(scene.Users),
		},
		YAxisSecondary: gochart.YAxis{
			Name:  LatencyTitle,
			Range: paddedRange(scene.Latency),
		},
	}

	if s, ok := timeSeries(scene.LatencyLine, gochart.YAxisSecondary); ok {
		c.Series = append(c.Series, s)
	}
	if s, ok := timeSeries(scene.UsersLine, gochart.YAxisPrimary); ok {
		c.Series = append(c.Series, s)
	}
	c.Elements = []gochart.Renderable{gochart.Legend(&c)}
	return c
}

func timeSeries(line Polyline, axis gochart.YAxisType) (gochart.TimeSeries, bool) {
	if line.Len() == 0 {
		return gochart.TimeSeries{}, false
	}
	xs := make([]time.Time, 0, line.Len())
	for _, v := range line.Vertices {
		xs = append(xs, v.Time)
	}
	return gochart.TimeSeries{
		Name: line.Name,
		Style: gochart.Style{
			StrokeColor: drawing.ColorFromHex(line.Color),
			StrokeWidth: line.Width,
		},
		YAxis:   axis,
		XValues: xs,
		YValues: line.Values(),
	}, true
}

// paddedRange widens a zero-width domain so the exported axis has a span.
func paddedRange(s LinearScale) *gochart.ContinuousRange {
	lo, hi := s.Domain[0], s.Domain[1]
	if hi < lo {
		lo, hi = hi, lo
	}
	if lo == hi {
		hi = lo + 1
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi}
}

func paddedTimeRange(s TimeScale) (float64, float64) {
	lo := gochart.TimeToFloat64(s.Domain[0])
	hi := gochart.TimeToFloat64(s.Domain[1])
	if lo == hi {
		lo -= float64(time.Second)
		hi += float64(time.Second)
	}
	return lo, hi
}
