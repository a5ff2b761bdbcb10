package chart

import (
	"math"
	"time"
)

// LinearScale maps a numeric domain onto a pixel range.
type LinearScale struct {
	Domain [2]float64
	Range  [2]float64
}

// Map projects v onto the range. A zero-width domain maps every value to the
// middle of the range.
func (s LinearScale) Map(v float64) float64 {
	return interpolate(s.Range, normalize(s.Domain[0], s.Domain[1], v))
}

// Degenerate reports whether the domain has zero width.
func (s LinearScale) Degenerate() bool {
	return s.Domain[0] == s.Domain[1]
}

// Ticks returns round values inside the domain, roughly count of them.
func (s LinearScale) Ticks(count int) []float64 {
	return linearTicks(s.Domain[0], s.Domain[1], count)
}

// TimeScale maps a time domain onto a pixel range.
type TimeScale struct {
	Domain [2]time.Time
	Range  [2]float64
}

// Map projects t onto the range. A zero-width domain maps to the middle.
func (s TimeScale) Map(t time.Time) float64 {
	d0 := float64(s.Domain[0].UnixNano())
	d1 := float64(s.Domain[1].UnixNano())
	return interpolate(s.Range, normalize(d0, d1, float64(t.UnixNano())))
}

// Degenerate reports whether the domain has zero width.
func (s TimeScale) Degenerate() bool {
	return s.Domain[0].Equal(s.Domain[1])
}

// Span returns the width of the domain.
func (s TimeScale) Span() time.Duration {
	return s.Domain[1].Sub(s.Domain[0])
}

// Ticks returns aligned instants inside the domain and the interval between them.
func (s TimeScale) Ticks(count int) ([]time.Time, time.Duration) {
	return timeTicks(s.Domain[0], s.Domain[1], count)
}

func normalize(d0, d1, v float64) float64 {
	if d1 == d0 {
		return 0.5
	}
	return (v - d0) / (d1 - d0)
}

func interpolate(r [2]float64, t float64) float64 {
	return r[0] + t*(r[1]-r[0])
}

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

// tickStep picks a 1, 2, or 5 times power-of-ten step giving about count ticks.
// It returns the step and, for sub-unit steps, the inverse used to keep tick
// values free of float noise.
func tickStep(start, stop float64, count int) (step, inverse float64) {
	raw := (stop - start) / math.Max(1, float64(count))
	power := math.Floor(math.Log10(raw))
	ratio := raw / math.Pow(10, power)

	factor := 1.0
	switch {
	case ratio >= e10:
		factor = 10
	case ratio >= e5:
		factor = 5
	case ratio >= e2:
		factor = 2
	}

	if power < 0 {
		inverse = math.Pow(10, -power) / factor
		return 1 / inverse, inverse
	}
	return factor * math.Pow(10, power), 0
}

func linearTicks(start, stop float64, count int) []float64 {
	if count <= 0 || math.IsNaN(start) || math.IsNaN(stop) {
		return nil
	}
	if start == stop {
		return []float64{start}
	}

	reverse := stop < start
	if reverse {
		start, stop = stop, start
	}

	step, inverse := tickStep(start, stop, count)
	if step == 0 || math.IsInf(step, 0) || math.IsNaN(step) {
		return nil
	}

	var ticks []float64
	if inverse > 0 {
		lo := math.Ceil(start * inverse)
		hi := math.Floor(stop * inverse)
		for i := lo; i <= hi; i++ {
			ticks = append(ticks, i/inverse)
		}
	} else {
		lo := math.Ceil(start / step)
		hi := math.Floor(stop / step)
		for i := lo; i <= hi; i++ {
			ticks = append(ticks, i*step)
		}
	}

	if reverse {
		for i, j := 0, len(ticks)-1; i < j; i, j = i+1, j-1 {
			ticks[i], ticks[j] = ticks[j], ticks[i]
		}
	}
	return ticks
}

// timeIntervals are the calendar-friendly steps a time axis may use.
var timeIntervals = []time.Duration{
	time.Second,
	5 * time.Second,
	15 * time.Second,
	30 * time.Second,
	time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	time.Hour,
	3 * time.Hour,
	6 * time.Hour,
	12 * time.Hour,
	24 * time.Hour,
	2 * 24 * time.Hour,
	7 * 24 * time.Hour,
}

func pickTimeInterval(span time.Duration, count int) time.Duration {
	target := span / time.Duration(count)
	if target < time.Second {
		// sub-second spans use 1/2/5 millisecond steps
		step, _ := tickStep(0, float64(span.Milliseconds()), count)
		ms := time.Duration(math.Max(1, math.Round(step))) * time.Millisecond
		return ms
	}
	for _, iv := range timeIntervals {
		if iv >= target {
			return iv
		}
	}
	return timeIntervals[len(timeIntervals)-1]
}

func timeTicks(start, stop time.Time, count int) ([]time.Time, time.Duration) {
	if count <= 0 {
		return nil, 0
	}
	if start.Equal(stop) {
		return []time.Time{start}, 0
	}
	if stop.Before(start) {
		start, stop = stop, start
	}

	interval := pickTimeInterval(stop.Sub(start), count)

	first := start.Truncate(interval)
	if first.Before(start) {
		first = first.Add(interval)
	}

	var ticks []time.Time
	for t := first; !t.After(stop); t = t.Add(interval) {
		ticks = append(ticks, t)
	}
	return ticks, interval
}
