package backlog

import (
	"context"
	"log/slog"
	"time"

	"provenant-hq/scribe/pkg/telemetry/metrics"
)

// Config contains configuration for the backlog pruner.
type Config struct {
	// RetentionDays is how long done items are kept after their last
	// update. 0 means keep them forever (no pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables scheduling.
	PruneSchedule string

	// Metrics is the optional metrics collector.
	Metrics *metrics.Collector

	// Clock supplies the pruning cutoff reference; tests inject a fixed
	// clock.
	Clock func() time.Time
}

// DefaultConfig returns the default backlog pruning configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 30,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner removes completed backlog items past their retention window.
// It is the only deletion pathway in this repository, and it touches
// nothing but backlog item files: decision logs, call logs, bundles and
// versioned histories are never pruned.
type Pruner struct {
	store     *Store
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a backlog pruner over store.
func NewPruner(store *Store, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	pruner := &Pruner{
		store:  store,
		config: config,
		logger: slog.Default().With("component", "backlog.pruner"),
	}
	pruner.scheduler = NewScheduler(pruner)
	return pruner
}

// Clean deletes items whose status is done and whose last update is
// older than the retention period. Items in any other status are kept
// regardless of age. Returns the number of items deleted.
func (p *Pruner) Clean(ctx context.Context) (int, error) {
	if p.config.RetentionDays <= 0 {
		p.logger.Debug("retention disabled, skipping prune")
		return 0, nil
	}

	cutoff := p.config.Clock().UTC().AddDate(0, 0, -p.config.RetentionDays)

	items, err := p.store.List(ctx, StatusDone)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, item := range items {
		if !item.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := p.store.delete(item.ItemID); err != nil {
			return deleted, err
		}
		deleted++
	}

	p.config.Metrics.RecordBacklogPruned(deleted)
	if deleted > 0 {
		p.logger.Info("backlog pruning completed",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	} else {
		p.logger.Debug("no backlog items pruned",
			"retention_days", p.config.RetentionDays,
		)
	}
	return deleted, nil
}

// Start starts the automatic pruning scheduler.
// Call this when starting the application.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
// Call this during graceful shutdown.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
