package simulator

import "math"

// detectorWarmup is how many samples the detector needs before it will
// flag anything.
const detectorWarmup = 10

// Detector flags latencies that sit more than Threshold standard deviations
// from the mean of the recent window. It is not safe for concurrent use.
type Detector struct {
	Threshold float64
	window    []float64
	size      int
}

// NewDetector returns a detector over the last size observations.
func NewDetector(threshold float64, size int) *Detector {
	if size < 2 {
		size = 2
	}
	return &Detector{
		Threshold: threshold,
		window:    make([]float64, 0, size),
		size:      size,
	}
}

// Observe scores v against the window, then adds it. The window does not
// include v when scoring.
func (d *Detector) Observe(v float64) (anomalous bool, z float64) {
	if len(d.window) >= detectorWarmup || len(d.window) == d.size {
		mean, std := meanStdDev(d.window)
		if std > 0 {
			z = (v - mean) / std
			anomalous = math.Abs(z) > d.Threshold
		}
	}

	if len(d.window) == d.size {
		copy(d.window, d.window[1:])
		d.window = d.window[:d.size-1]
	}
	d.window = append(d.window, v)
	return anomalous, z
}

// Len is the number of observations in the window.
func (d *Detector) Len() int {
	return len(d.window)
}

func meanStdDev(vals []float64) (mean, std float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))

	var sq float64
	for _, v := range vals {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(vals)))
}
