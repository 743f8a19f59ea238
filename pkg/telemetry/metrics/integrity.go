package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IntegrityMetrics tracks chain verification.
//
// Metrics:
//   - scribe_chain_valid: 1 while the last verification of a log passed
//   - scribe_verify_runs_total: verification passes by log and outcome
//   - scribe_verify_duration_seconds: verification latency histogram
//   - scribe_verified_records: record count observed by the last pass
//
// chain_valid dropping to 0 is the alerting signal for tampering; it is
// never reset automatically, only by a subsequent clean verification.
type IntegrityMetrics struct {
	chainValid      *prometheus.GaugeVec
	verifyRuns      *prometheus.CounterVec
	verifyDuration  prometheus.Histogram
	verifiedRecords *prometheus.GaugeVec
}

// NewIntegrityMetrics creates and registers integrity metrics.
func NewIntegrityMetrics(cfg *Config, registry *prometheus.Registry) *IntegrityMetrics {
	im := &IntegrityMetrics{
		chainValid: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "chain_valid",
				Help:      "1 if the last verification of the log found an unbroken chain, else 0",
			},
			[]string{"log"},
		),
		verifyRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "verify_runs_total",
				Help:      "Chain verification passes, by log and outcome",
			},
			[]string{"log", "outcome"},
		),
		verifyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "verify_duration_seconds",
				Help:      "Duration of chain verification passes",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
			},
		),
		verifiedRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "verified_records",
				Help:      "Records examined by the most recent verification pass",
			},
			[]string{"log"},
		),
	}

	registry.MustRegister(im.chainValid, im.verifyRuns, im.verifyDuration, im.verifiedRecords)
	return im
}

func (m *IntegrityMetrics) recordVerify(log string, valid bool, records int, duration time.Duration) {
	outcome := "valid"
	gauge := 1.0
	if !valid {
		outcome = "broken"
		gauge = 0.0
	}
	m.chainValid.WithLabelValues(log).Set(gauge)
	m.verifyRuns.WithLabelValues(log, outcome).Inc()
	m.verifyDuration.Observe(duration.Seconds())
	m.verifiedRecords.WithLabelValues(log).Set(float64(records))
}
