package chart

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille patterns pack a 2x4 dot matrix into one cell:
//
//	  Col 0  Col 1
//	Row 0:   ⠁      ⠈     (dots 1, 4)
//	Row 1:   ⠂      ⠐     (dots 2, 5)
//	Row 2:   ⠄      ⠠     (dots 3, 6)
//	Row 3:   ⡀      ⢀     (dots 7, 8)
//
// U+2800 is the empty pattern; each dot is one bit on top of it.
const brailleBase = '\u2800'

// brailleDots maps [row][col] inside a cell to the bit for that dot.
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// minPlotCols and minPlotRows are the smallest plot area worth drawing.
const (
	minPlotCols = 4
	minPlotRows = 2
)

// dotGrid is a braille canvas for one series.
type dotGrid struct {
	cols, rows int
	cells      [][]uint8
}

func newDotGrid(cols, rows int) *dotGrid {
	cells := make([][]uint8, rows)
	for i := range cells {
		cells[i] = make([]uint8, cols)
	}
	return &dotGrid{cols: cols, rows: rows, cells: cells}
}

func (g *dotGrid) set(x, y int) {
	if x < 0 || y < 0 || x >= g.cols*2 || y >= g.rows*4 {
		return
	}
	g.cells[y/4][x/2] |= 1 << brailleDots[y%4][x%2]
}

// line draws a segment with Bresenham's algorithm.
func (g *dotGrid) line(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		g.set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// RenderTerminal draws the scene as a braille chart that fits in cols x rows
// terminal cells: a title row, the plot with a latency gutter on the left and
// a users gutter on the right, a time row, and the legend. It returns "" for
// an empty scene or when the space is too small to plot.
func RenderTerminal(scene Scene, cols, rows int) string {
	if scene.Empty() || cols <= 0 || rows <= 0 {
		return ""
	}
	innerW := scene.Layout.InnerWidth()
	innerH := scene.Layout.InnerHeight()
	if innerW <= 0 || innerH <= 0 {
		return ""
	}

	left, _ := scene.Axis(AxisLeft)
	right, _ := scene.Axis(AxisRight)
	bottom, _ := scene.Axis(AxisBottom)

	leftW := labelWidth(left.Ticks) + 1
	rightW := labelWidth(right.Ticks) + 1
	plotCols := cols - leftW - rightW
	plotRows := rows - 3
	if plotCols < minPlotCols || plotRows < minPlotRows {
		return ""
	}

	dotsW := plotCols * 2
	dotsH := plotRows * 4
	toDot := func(p Point) (int, int) {
		x := clampDot(p.X/innerW*float64(dotsW-1), dotsW)
		y := clampDot(p.Y/innerH*float64(dotsH-1), dotsH)
		return x, y
	}

	latency := plotLine(newDotGrid(plotCols, plotRows), scene.LatencyLine, toDot)
	users := plotLine(newDotGrid(plotCols, plotRows), scene.UsersLine, toDot)

	latencyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(scene.LatencyLine.Color))
	usersStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(scene.UsersLine.Color))
	axisStyle := lipgloss.NewStyle().Faint(true)

	leftLabels := rowLabels(left.Ticks, innerH, plotRows)
	rightLabels := rowLabels(right.Ticks, innerH, plotRows)

	lines := make([]string, 0, rows)

	title := padRight(LatencyTitle, cols-len(UsersTitle)) + UsersTitle
	lines = append(lines, axisStyle.Render(title))

	for r := 0; r < plotRows; r++ {
		var b strings.Builder
		b.WriteString(axisStyle.Render(padLeft(leftLabels[r], leftW-1) + " "))
		for c := 0; c < plotCols; c++ {
			lb, ub := latency.cells[r][c], users.cells[r][c]
			ch := string(brailleBase + rune(lb|ub))
			switch {
			case lb != 0:
				b.WriteString(latencyStyle.Render(ch))
			case ub != 0:
				b.WriteString(usersStyle.Render(ch))
			default:
				b.WriteString(ch)
			}
		}
		b.WriteString(axisStyle.Render(" " + padRight(rightLabels[r], rightW-1)))
		lines = append(lines, b.String())
	}

	lines = append(lines, axisStyle.Render(timeRow(bottom.Ticks, innerW, leftW, plotCols, cols)))

	legend := latencyStyle.Render("━━") + " " + LatencyLabel + "   " + usersStyle.Render("━━") + " " + UsersLabel
	lines = append(lines, legend)

	return strings.Join(lines, "\n")
}

// plotLine joins consecutive vertices. A vertex that is not a finite point
// is skipped and the line resumes at the next one.
func plotLine(g *dotGrid, line Polyline, toDot func(Point) (int, int)) *dotGrid {
	var px, py int
	started := false
	for _, v := range line.Vertices {
		if !finite(v.X) || !finite(v.Y) {
			continue
		}
		x, y := toDot(v.Point)
		if started {
			g.line(px, py, x, y)
		} else {
			g.set(x, y)
			started = true
		}
		px, py = x, y
	}
	return g
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// clampDot rounds a dot coordinate and pins it inside [0, n).
func clampDot(v float64, n int) int {
	switch {
	case !finite(v) || v < 0:
		return 0
	case v > float64(n-1):
		return n - 1
	}
	return int(math.Round(v))
}

// rowLabels assigns each tick label to the plot row nearest its position.
// When two ticks land on one row the first keeps it.
func rowLabels(ticks []Tick, innerH float64, rows int) []string {
	labels := make([]string, rows)
	for _, t := range ticks {
		r := int(math.Round(t.Pos / innerH * float64(rows-1)))
		if r < 0 || r >= rows || labels[r] != "" {
			continue
		}
		labels[r] = t.Label
	}
	return labels
}

// timeRow lays time labels under the plot, dropping any that would overlap.
func timeRow(ticks []Tick, innerW float64, offset, plotCols, cols int) string {
	row := []rune(strings.Repeat(" ", cols))
	next := 0
	for _, t := range ticks {
		label := []rune(t.Label)
		col := offset + int(math.Round(t.Pos/innerW*float64(plotCols-1))) - len(label)/2
		if col < next || col < 0 || col+len(label) > cols {
			continue
		}
		copy(row[col:], label)
		next = col + len(label) + 1
	}
	return strings.TrimRight(string(row), " ")
}

func labelWidth(ticks []Tick) int {
	w := 0
	for _, t := range ticks {
		if n := len([]rune(t.Label)); n > w {
			w = n
		}
	}
	return w
}

func padLeft(s string, n int) string {
	if gap := n - len([]rune(s)); gap > 0 {
		return strings.Repeat(" ", gap) + s
	}
	return s
}

func padRight(s string, n int) string {
	if gap := n - len([]rune(s)); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
