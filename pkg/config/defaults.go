package config

import "time"

// Default values for configuration fields.
const (
	DefaultDataDir = "data/"

	// Ledger defaults
	DefaultLockTimeout     = 5 * time.Second
	DefaultFsync           = true
	DefaultIndexEnabled    = true
	DefaultMonitorEnabled  = false
	DefaultMonitorDebounce = 500 * time.Millisecond

	// Backlog defaults
	DefaultBacklogRetentionDays = 30
	DefaultBacklogSchedule      = "0 3 * * *"

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8484"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultLoggingOutput  = "stderr"
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}

	if cfg.Ledger.LockTimeout == 0 {
		cfg.Ledger.LockTimeout = DefaultLockTimeout
	}
	if cfg.Ledger.Monitor.DebounceInterval == 0 {
		cfg.Ledger.Monitor.DebounceInterval = DefaultMonitorDebounce
	}

	if cfg.Audit.LockTimeout == 0 {
		cfg.Audit.LockTimeout = DefaultLockTimeout
	}

	if cfg.Stores.LockTimeout == 0 {
		cfg.Stores.LockTimeout = DefaultLockTimeout
	}

	if cfg.Backlog.RetentionDays == 0 {
		cfg.Backlog.RetentionDays = DefaultBacklogRetentionDays
	}
	if cfg.Backlog.PruneSchedule == "" {
		cfg.Backlog.PruneSchedule = DefaultBacklogSchedule
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Logging.Output == "" {
		cfg.Telemetry.Logging.Output = DefaultLoggingOutput
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}

// DefaultConfig returns a configuration populated entirely with default
// values. Fsync, the index, metrics and the server are on; the monitor
// is opt-in.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Ledger.Fsync = DefaultFsync
	cfg.Ledger.Index.Enabled = DefaultIndexEnabled
	cfg.Audit.Fsync = DefaultFsync
	cfg.Server.Enabled = true
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	return cfg
}
