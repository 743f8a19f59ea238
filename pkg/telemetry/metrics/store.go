package metrics

import "github.com/prometheus/client_golang/prometheus"

// StoreMetrics tracks the versioned stores, the bundle store, and the
// backlog pruner.
//
// Metrics:
//   - scribe_store_saves_total: versioned-store saves by store and status
//   - scribe_bundle_creates_total: version bundle creations by status
//   - scribe_backlog_pruned_total: completed backlog items removed
type StoreMetrics struct {
	savesTotal         *prometheus.CounterVec
	bundleCreatesTotal *prometheus.CounterVec
	backlogPrunedTotal prometheus.Counter
}

// NewStoreMetrics creates and registers store metrics.
func NewStoreMetrics(cfg *Config, registry *prometheus.Registry) *StoreMetrics {
	sm := &StoreMetrics{
		savesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "store_saves_total",
				Help:      "Versioned-store saves, by store name and status",
			},
			[]string{"store", "status"},
		),
		bundleCreatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "bundle_creates_total",
				Help:      "Version bundle creations, by status",
			},
			[]string{"status"},
		),
		backlogPrunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "backlog_pruned_total",
				Help:      "Completed backlog items removed by the pruner",
			},
		),
	}

	registry.MustRegister(sm.savesTotal, sm.bundleCreatesTotal, sm.backlogPrunedTotal)
	return sm
}

func (m *StoreMetrics) recordSave(store string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.savesTotal.WithLabelValues(store, status).Inc()
}

func (m *StoreMetrics) recordBundle(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.bundleCreatesTotal.WithLabelValues(status).Inc()
}
