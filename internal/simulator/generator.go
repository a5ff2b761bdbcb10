package simulator

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/rileyhilliard/streamwatch/internal/sample"
)

// Distribution parameters for generated samples.
const (
	latencyMean   = 100.0 // ms
	latencyStdDev = 20.0
	bufferingMean = 5.0
	usersMean     = 1000.0
	usersStdDev   = 200.0

	initialStreams = 5
)

// Reading is one sample as the producer publishes it.
type Reading struct {
	Timestamp string  `json:"timestamp"`
	Latency   float64 `json:"latency"`
	Buffering int64   `json:"buffering"`
	Users     int64   `json:"users"`

	*ContentStats
}

// NewReading builds a reading for a sample with no content stats attached.
func NewReading(s sample.MetricSample) Reading {
	return Reading{
		Timestamp: sample.FormatTimestamp(s.Timestamp),
		Latency:   s.Latency,
		Buffering: s.Buffering,
		Users:     s.Users,
	}
}

// Sample converts the reading to the dashboard's sample type.
func (r Reading) Sample() sample.MetricSample {
	s := sample.MetricSample{
		Latency:   r.Latency,
		Buffering: r.Buffering,
		Users:     r.Users,
	}
	if ts, ok := sample.ParseTimestamp(r.Timestamp); ok {
		s.Timestamp = ts
	} else {
		s.Missing |= sample.FieldTimestamp
	}
	return s
}

// Generator draws readings from fixed distributions. It is not safe for
// concurrent use.
type Generator struct {
	rng     *rand.Rand
	catalog *Catalog
	now     func() time.Time
}

// NewGenerator returns a generator using rng for every draw.
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{
		rng:     rng,
		catalog: NewCatalog(rng, initialStreams),
		now:     time.Now,
	}
}

// NewSeededGenerator returns a generator with a reproducible sequence.
func NewSeededGenerator(seed uint64) *Generator {
	return NewGenerator(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// Next draws one reading: latency ~ N(100, 20), buffering ~ Poisson(5),
// users ~ N(1000, 200) clamped at zero.
func (g *Generator) Next() Reading {
	g.catalog.Churn()
	stats := g.catalog.Stats()

	users := int64(g.rng.NormFloat64()*usersStdDev + usersMean)
	if users < 0 {
		users = 0
	}

	return Reading{
		Timestamp:    sample.FormatTimestamp(g.now()),
		Latency:      g.rng.NormFloat64()*latencyStdDev + latencyMean,
		Buffering:    poisson(g.rng, bufferingMean),
		Users:        users,
		ContentStats: &stats,
	}
}

// poisson uses Knuth's multiplication method, fine for small means.
func poisson(rng *rand.Rand, mean float64) int64 {
	limit := math.Exp(-mean)
	var k int64
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}
