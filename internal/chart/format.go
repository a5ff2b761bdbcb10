package chart

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatValue renders a tick value with just enough decimals for the tick
// step, grouping thousands ("1,200", "0.5").
func FormatValue(v, step float64) string {
	decimals := 0
	if step > 0 && step < 1 {
		decimals = int(math.Ceil(-math.Log10(step)))
	}
	if v == 0 {
		return "0"
	}
	return humanize.CommafWithDigits(v, decimals)
}

// FormatTime renders a time tick at the precision its interval calls for.
func FormatTime(t time.Time, interval time.Duration) string {
	switch {
	case interval > 0 && interval < time.Second:
		return t.Format("15:04:05.000")
	case interval >= 24*time.Hour:
		return t.Format("Jan 02")
	case interval >= time.Minute:
		return t.Format("15:04")
	default:
		return t.Format("15:04:05")
	}
}
