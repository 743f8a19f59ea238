package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Enabled controls whether metrics are recorded at all. When false
	// every Record* call is a no-op.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix. Default: "scribe".
	Namespace string `yaml:"namespace"`
}

// Collector owns every Prometheus metric the ledger runtime exposes. All
// Record* methods are safe for concurrent use and safe to call on a nil
// collector, so components can carry an optional *Collector without
// nil-guarding each call site.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	ledger    *LedgerMetrics
	audit     *AuditMetrics
	stores    *StoreMetrics
	integrity *IntegrityMetrics
}

// NewCollector creates a metrics collector registered against the given
// registry. A nil registry gets a fresh one.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &Config{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "scribe"
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		ledger:    NewLedgerMetrics(cfg, registry),
		audit:     NewAuditMetrics(cfg, registry),
		stores:    NewStoreMetrics(cfg, registry),
		integrity: NewIntegrityMetrics(cfg, registry),
	}
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordAppend records a completed decision-log append.
func (c *Collector) RecordAppend(decisionType string, duration time.Duration, err error) {
	if !c.enabled() {
		return
	}
	c.ledger.recordAppend(decisionType, duration, err)
}

// RecordLockTimeout records a write that failed to acquire its log lock.
func (c *Collector) RecordLockTimeout(log string) {
	if !c.enabled() {
		return
	}
	c.ledger.lockTimeouts.WithLabelValues(log).Inc()
}

// RecordVerify records an integrity verification pass over a log.
func (c *Collector) RecordVerify(log string, valid bool, records int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.integrity.recordVerify(log, valid, records, duration)
}

// RecordAuditCall records a persisted LLM call record.
func (c *Collector) RecordAuditCall(status string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.audit.recordCall(status, duration)
}

// RecordRedaction records payload redactions performed before persistence.
func (c *Collector) RecordRedaction(count int) {
	if !c.enabled() || count == 0 {
		return
	}
	c.audit.redactionsTotal.Add(float64(count))
}

// RecordStoreSave records a versioned-store save.
func (c *Collector) RecordStoreSave(store string, err error) {
	if !c.enabled() {
		return
	}
	c.stores.recordSave(store, err)
}

// RecordBundleCreate records a version bundle creation.
func (c *Collector) RecordBundleCreate(err error) {
	if !c.enabled() {
		return
	}
	c.stores.recordBundle(err)
}

// RecordBacklogPruned records backlog items removed by the pruner.
func (c *Collector) RecordBacklogPruned(count int) {
	if !c.enabled() || count == 0 {
		return
	}
	c.stores.backlogPrunedTotal.Add(float64(count))
}
