package chart

import (
	"math"
	"time"

	"github.com/rileyhilliard/streamwatch/internal/sample"
)

// Default canvas geometry.
const (
	DefaultWidth        = 800
	DefaultHeight       = 400
	DefaultStrokeWidth  = 1.5
	DefaultLatencyColor = "#4682b4"
	DefaultUsersColor   = "#ff0000"

	// axisTickCount is the approximate number of ticks per axis.
	axisTickCount = 10

	// legendRowHeight is the vertical spacing between legend entries.
	legendRowHeight = 20

	// legendSwatch is the side length of a legend color square.
	legendSwatch = 19
)

// Axis titles and legend labels.
const (
	LatencyTitle = "Latency (ms)"
	UsersTitle   = "Users"
	LatencyLabel = "Latency"
	UsersLabel   = "Users"
)

// Margin is the space reserved around the plot area for axes.
type Margin struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// Layout describes the canvas a scene is laid out on.
type Layout struct {
	Width        float64
	Height       float64
	Margin       Margin
	LatencyColor string
	UsersColor   string
	StrokeWidth  float64
}

// DefaultLayout returns an 800x400 canvas with room for both vertical axes.
func DefaultLayout() Layout {
	return Layout{
		Width:        DefaultWidth,
		Height:       DefaultHeight,
		Margin:       Margin{Top: 20, Right: 30, Bottom: 30, Left: 60},
		LatencyColor: DefaultLatencyColor,
		UsersColor:   DefaultUsersColor,
		StrokeWidth:  DefaultStrokeWidth,
	}
}

// InnerWidth is the plot width once margins are removed.
func (l Layout) InnerWidth() float64 {
	return l.Width - l.Margin.Left - l.Margin.Right
}

// InnerHeight is the plot height once margins are removed.
func (l Layout) InnerHeight() float64 {
	return l.Height - l.Margin.Top - l.Margin.Bottom
}

// Point is a position in plot coordinates, origin at the top-left of the
// inner area.
type Point struct {
	X float64
	Y float64
}

// Vertex is one plotted sample: where it landed and what it was.
type Vertex struct {
	Point
	Index int
	Time  time.Time
	Value float64
}

// Polyline is a single series drawn as connected vertices.
type Polyline struct {
	Name     string
	Color    string
	Width    float64
	Vertices []Vertex
}

// Len returns the vertex count.
func (p Polyline) Len() int { return len(p.Vertices) }

// Values returns the data values in vertex order.
func (p Polyline) Values() []float64 {
	out := make([]float64, len(p.Vertices))
	for i, v := range p.Vertices {
		out[i] = v.Value
	}
	return out
}

// Orientation says which side of the plot an axis is drawn on.
type Orientation int

const (
	AxisLeft Orientation = iota
	AxisRight
	AxisBottom
)

func (o Orientation) String() string {
	switch o {
	case AxisLeft:
		return "left"
	case AxisRight:
		return "right"
	case AxisBottom:
		return "bottom"
	default:
		return "unknown"
	}
}

// Tick is a labelled position along an axis.
type Tick struct {
	Pos   float64
	Label string
}

// Axis is a ruled edge of the plot. Offset is the translation of the axis
// line within the plot area.
type Axis struct {
	Orient Orientation
	Title  string
	Offset Point
	Ticks  []Tick
}

// LegendEntry is one swatch and label.
type LegendEntry struct {
	Label  string
	Color  string
	Swatch Point
}

// Legend lists the plotted series.
type Legend struct {
	Entries []LegendEntry
}

// Scene is the complete, renderer-independent description of one chart
// frame. It is rebuilt from scratch for every snapshot.
type Scene struct {
	Layout  Layout
	X       TimeScale
	Latency LinearScale
	Users   LinearScale

	LatencyLine Polyline
	UsersLine   Polyline

	Axes   []Axis
	Legend Legend

	// Samples is the length of the snapshot the scene was built from.
	Samples int
}

// Empty reports whether there is nothing to draw.
func (s Scene) Empty() bool {
	return s.Samples == 0
}

// Axis returns the axis drawn on the given side.
func (s Scene) Axis(o Orientation) (Axis, bool) {
	for _, a := range s.Axes {
		if a.Orient == o {
			return a, true
		}
	}
	return Axis{}, false
}

// hasLatency reports whether the sample's latency can be placed on a scale.
func hasLatency(s sample.MetricSample) bool {
	return s.Has(sample.FieldLatency) && !math.IsNaN(s.Latency) && !math.IsInf(s.Latency, 0)
}

// Render builds the scene for a snapshot. It never fails: an empty snapshot
// yields an empty scene, and fields flagged missing are left out of both the
// domains and the polylines.
func Render(snapshot []sample.MetricSample, layout Layout) Scene {
	scene := Scene{Layout: layout, Samples: len(snapshot)}
	if len(snapshot) == 0 {
		return scene
	}

	width := layout.InnerWidth()
	height := layout.InnerHeight()

	var (
		tMin, tMax             time.Time
		haveTime               bool
		maxLatency, maxUsers   float64
		latencySeen, usersSeen bool
	)
	for _, s := range snapshot {
		if !s.Has(sample.FieldTimestamp) {
			continue
		}
		if !haveTime || s.Timestamp.Before(tMin) {
			tMin = s.Timestamp
		}
		if !haveTime || s.Timestamp.After(tMax) {
			tMax = s.Timestamp
		}
		haveTime = true

		if hasLatency(s) && (!latencySeen || s.Latency > maxLatency) {
			maxLatency = s.Latency
			latencySeen = true
		}
		if s.Has(sample.FieldUsers) && (!usersSeen || float64(s.Users) > maxUsers) {
			maxUsers = float64(s.Users)
			usersSeen = true
		}
	}

	scene.X = TimeScale{Domain: [2]time.Time{tMin, tMax}, Range: [2]float64{0, width}}
	scene.Latency = LinearScale{Domain: [2]float64{0, maxLatency}, Range: [2]float64{height, 0}}
	scene.Users = LinearScale{Domain: [2]float64{0, maxUsers}, Range: [2]float64{height, 0}}

	scene.LatencyLine = Polyline{Name: LatencyLabel, Color: layout.LatencyColor, Width: layout.StrokeWidth}
	scene.UsersLine = Polyline{Name: UsersLabel, Color: layout.UsersColor, Width: layout.StrokeWidth}

	for i, s := range snapshot {
		if !s.Has(sample.FieldTimestamp) {
			continue
		}
		x := scene.X.Map(s.Timestamp)
		if hasLatency(s) {
			scene.LatencyLine.Vertices = append(scene.LatencyLine.Vertices, Vertex{
				Point: Point{X: x, Y: scene.Latency.Map(s.Latency)},
				Index: i,
				Time:  s.Timestamp,
				Value: s.Latency,
			})
		}
		if s.Has(sample.FieldUsers) {
			users := float64(s.Users)
			scene.UsersLine.Vertices = append(scene.UsersLine.Vertices, Vertex{
				Point: Point{X: x, Y: scene.Users.Map(users)},
				Index: i,
				Time:  s.Timestamp,
				Value: users,
			})
		}
	}

	scene.Axes = []Axis{
		{Orient: AxisLeft, Title: LatencyTitle, Ticks: linearAxisTicks(scene.Latency)},
		{Orient: AxisRight, Title: UsersTitle, Offset: Point{X: width}, Ticks: linearAxisTicks(scene.Users)},
		{Orient: AxisBottom, Offset: Point{Y: height}, Ticks: timeAxisTicks(scene.X, haveTime)},
	}

	scene.Legend = Legend{Entries: []LegendEntry{
		{Label: LatencyLabel, Color: layout.LatencyColor, Swatch: Point{X: width - legendSwatch, Y: 0}},
		{Label: UsersLabel, Color: layout.UsersColor, Swatch: Point{X: width - legendSwatch, Y: legendRowHeight}},
	}}

	return scene
}

func linearAxisTicks(s LinearScale) []Tick {
	values := s.Ticks(axisTickCount)
	step := 0.0
	if len(values) > 1 {
		step = values[1] - values[0]
	}
	ticks := make([]Tick, 0, len(values))
	for _, v := range values {
		ticks = append(ticks, Tick{Pos: s.Map(v), Label: FormatValue(v, step)})
	}
	return ticks
}

func timeAxisTicks(s TimeScale, haveTime bool) []Tick {
	if !haveTime {
		return nil
	}
	instants, interval := s.Ticks(axisTickCount)
	ticks := make([]Tick, 0, len(instants))
	for _, t := range instants {
		ticks = append(ticks, Tick{Pos: s.Map(t), Label: FormatTime(t, interval)})
	}
	return ticks
}
