package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"provenant-hq/scribe/pkg/audit"
	"provenant-hq/scribe/pkg/bundle"
	"provenant-hq/scribe/pkg/config"
	"provenant-hq/scribe/pkg/ledger/decision"
	"provenant-hq/scribe/pkg/ledger/index"
	"provenant-hq/scribe/pkg/telemetry/logging"
	"provenant-hq/scribe/pkg/telemetry/metrics"
	"provenant-hq/scribe/pkg/vstore"
)

// loadConfig loads the configuration file if it exists, falling back to
// pure defaults when it does not. Read-only commands should work against
// a default layout without demanding a config file.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfigWithEnvOverrides(cfgFile)
}

// setupLogging installs the configured logger as the slog default.
func setupLogging(cfg *config.Config) (*logging.Logger, error) {
	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}
	return logging.Setup(logging.Config{
		Level:        level,
		Format:       cfg.Telemetry.Logging.Format,
		Output:       cfg.Telemetry.Logging.Output,
		RedactFields: true,
	})
}

// components holds everything a command can need, wired from config.
type components struct {
	ledger  *decision.Ledger
	audit   *audit.Service
	bundles *bundle.Store
	stores  map[string]*vstore.Store
	metrics *metrics.Collector
}

// openComponents wires the ledger, audit service, bundle store, and
// versioned stores under cfg.DataDir.
func openComponents(cfg *config.Config) (*components, error) {
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&metrics.Config{Enabled: true}, nil)
	}

	ledgerCfg := &decision.Config{
		Root:        cfg.DataDir,
		LockTimeout: cfg.Ledger.LockTimeout,
		Fsync:       cfg.Ledger.Fsync,
		Metrics:     collector,
	}
	if cfg.Ledger.Index.Enabled {
		indexPath := cfg.Ledger.Index.Path
		if indexPath == "" {
			indexPath = filepath.Join(cfg.DataDir, "index.db")
		}
		idx, err := index.Open(index.DefaultConfig(indexPath))
		if err != nil {
			return nil, fmt.Errorf("failed to open query index: %w", err)
		}
		ledgerCfg.Index = idx
	}

	led, err := decision.New(ledgerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open decision ledger: %w", err)
	}

	auditSvc, err := audit.NewService(&audit.Config{
		Root:        cfg.DataDir,
		LockTimeout: cfg.Audit.LockTimeout,
		Fsync:       cfg.Audit.Fsync,
		Metrics:     collector,
	})
	if err != nil {
		led.Close()
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	bundles, err := bundle.NewStore(&bundle.Config{
		Root:    filepath.Join(cfg.DataDir, "bundles"),
		Metrics: collector,
	})
	if err != nil {
		led.Close()
		return nil, fmt.Errorf("failed to open bundle store: %w", err)
	}

	storeRoot := filepath.Join(cfg.DataDir, "stores")
	stores := make(map[string]*vstore.Store, 3)
	for name, open := range map[string]func(string, time.Duration, *metrics.Collector) (*vstore.Store, error){
		"truth":  vstore.NewTruthStore,
		"labels": vstore.NewLabelStore,
		"config": vstore.NewConfigStore,
	} {
		s, err := open(storeRoot, cfg.Stores.LockTimeout, collector)
		if err != nil {
			led.Close()
			return nil, fmt.Errorf("failed to open %s store: %w", name, err)
		}
		stores[name] = s
	}

	return &components{
		ledger:  led,
		audit:   auditSvc,
		bundles: bundles,
		stores:  stores,
		metrics: collector,
	}, nil
}

// Close releases everything openComponents opened.
func (c *components) Close() error {
	return c.ledger.Close()
}
