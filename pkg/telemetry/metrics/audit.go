package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditMetrics tracks the LLM call audit log.
//
// Metrics:
//   - scribe_audit_records_total: persisted call records by call status
//   - scribe_audit_record_duration_seconds: record latency histogram
//   - scribe_redactions_total: binary payloads replaced before persistence
type AuditMetrics struct {
	recordsTotal    *prometheus.CounterVec
	recordDuration  prometheus.Histogram
	redactionsTotal prometheus.Counter
}

// NewAuditMetrics creates and registers audit metrics.
func NewAuditMetrics(cfg *Config, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "audit_records_total",
				Help:      "Total LLM call records persisted, by call status",
			},
			[]string{"status"},
		),
		recordDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "audit_record_duration_seconds",
				Help:      "Duration of LLM call record appends",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		redactionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "redactions_total",
				Help:      "Binary or image payloads replaced with placeholders before persistence",
			},
		),
	}

	registry.MustRegister(am.recordsTotal, am.recordDuration, am.redactionsTotal)
	return am
}

func (m *AuditMetrics) recordCall(status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.recordsTotal.WithLabelValues(status).Inc()
	m.recordDuration.Observe(duration.Seconds())
}
