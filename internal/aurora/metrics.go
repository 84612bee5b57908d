package aurora

import "github.com/prometheus/client_golang/prometheus"

// Metrics wires the walk/tally counters the teacher's DHTMetrics struct
// declared but never fed to a real collector (kernel/core/mesh/routing/dht.go).
type Metrics struct {
	WalksTotal          prometheus.Counter
	WalksAborted        prometheus.Counter
	CliqueDetectedTotal prometheus.Counter
	AccumulatedMistake  prometheus.Histogram
	DistanceEstimate    prometheus.Gauge
}

// NewMetrics registers the Aurora collectors against reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate-registration
// panics across package-level default registries.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WalksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aurora_walks_total",
			Help: "Total number of completed Aurora walks.",
		}),
		WalksAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aurora_walks_aborted_total",
			Help: "Total number of Aurora walks that aborted on threshold breach.",
		}),
		CliqueDetectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aurora_clique_detected_total",
			Help: "Total number of tallies that raised CliqueDetected.",
		}),
		AccumulatedMistake: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aurora_accumulated_mistake",
			Help:    "Accumulated mistake at walk termination.",
			Buckets: prometheus.LinearBuckets(0, 5, 20),
		}),
		DistanceEstimate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aurora_distance_estimate",
			Help: "Most recent adaptive walk-length estimate.",
		}),
	}
	reg.MustRegister(m.WalksTotal, m.WalksAborted, m.CliqueDetectedTotal, m.AccumulatedMistake, m.DistanceEstimate)
	return m
}
