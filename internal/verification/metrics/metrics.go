package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	// Decision outcomes by status and trigger (create, rerun, review)
	DecisionOutcome *prometheus.CounterVec

	// Full pipeline latency including the reuse lookup
	EvaluateLatency prometheus.Histogram

	// Fingerprint reuse lookup latency
	ReuseLookupLatency prometheus.Histogram

	// Cases where the reuse count came back positive
	FingerprintReuseHits prometheus.Counter
}

// New creates a Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		DecisionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriflow_decision_outcomes_total",
			Help: "Total decision outcomes by status and trigger",
		}, []string{"status", "trigger"}),

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veriflow_evaluate_duration_seconds",
			Help:    "Duration of full case evaluation including the reuse lookup",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		ReuseLookupLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veriflow_fingerprint_lookup_duration_seconds",
			Help:    "Duration of device fingerprint reuse lookups",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),

		FingerprintReuseHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veriflow_fingerprint_reuse_hits_total",
			Help: "Evaluations that found the device fingerprint on other cases",
		}),
	}
}

// IncrementOutcome records a decision outcome.
func (m *Metrics) IncrementOutcome(status, trigger string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(status, trigger).Inc()
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// ObserveReuseLookup records one reuse lookup.
func (m *Metrics) ObserveReuseLookup(d time.Duration, hit bool) {
	if m != nil {
		m.ReuseLookupLatency.Observe(d.Seconds())
		if hit {
			m.FingerprintReuseHits.Inc()
		}
	}
}
