package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks the decision-log write path.
//
// Metrics:
//   - scribe_ledger_appends_total: appends by decision type and status
//   - scribe_ledger_append_duration_seconds: append latency histogram
//   - scribe_lock_timeouts_total: lock acquisitions that hit the bound
type LedgerMetrics struct {
	appendsTotal   *prometheus.CounterVec
	appendDuration prometheus.Histogram
	lockTimeouts   *prometheus.CounterVec
}

// NewLedgerMetrics creates and registers ledger metrics.
func NewLedgerMetrics(cfg *Config, registry *prometheus.Registry) *LedgerMetrics {
	lm := &LedgerMetrics{
		appendsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "ledger_appends_total",
				Help:      "Total decision records appended, by decision type and status",
			},
			[]string{"decision_type", "status"},
		),
		appendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "ledger_append_duration_seconds",
				Help:      "Duration of decision appends including lock wait and fsync",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		lockTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "lock_timeouts_total",
				Help:      "Writes that could not acquire the log lock within the bound",
			},
			[]string{"log"},
		),
	}

	registry.MustRegister(lm.appendsTotal, lm.appendDuration, lm.lockTimeouts)
	return lm
}

func (m *LedgerMetrics) recordAppend(decisionType string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.appendsTotal.WithLabelValues(decisionType, status).Inc()
	m.appendDuration.Observe(duration.Seconds())
}
