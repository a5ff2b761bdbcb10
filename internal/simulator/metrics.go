package simulator

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sample sources, used as the "source" label.
const (
	SourceGenerated = "generated"
	SourceIngested  = "ingested"
)

// Metrics are the producer's Prometheus instruments.
type Metrics struct {
	registry *prometheus.Registry

	SamplesEmitted   *prometheus.CounterVec
	Anomalies        prometheus.Counter
	SampleLatency    prometheus.Histogram
	ConnectedClients prometheus.Gauge
}

// NewMetrics registers the instruments on a fresh registry, so several
// servers can live in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SamplesEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamwatch_samples_emitted_total",
				Help: "Samples published to stream clients.",
			},
			[]string{"source"},
		),
		Anomalies: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "streamwatch_anomalies_total",
				Help: "Samples flagged as anomalous.",
			},
		),
		SampleLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "streamwatch_sample_latency_ms",
				Help:    "Latency carried by published samples, in milliseconds.",
				Buckets: prometheus.LinearBuckets(40, 20, 8),
			},
		),
		ConnectedClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "streamwatch_connected_clients",
				Help: "Websocket clients currently attached.",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
