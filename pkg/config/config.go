package config

import "time"

// Config is the root configuration for the scribe service and CLI.
type Config struct {
	// DataDir is the root directory owned by scribe. Log files, bundles,
	// versioned stores and the backlog all live beneath it.
	DataDir string `yaml:"data_dir"`

	// Ledger configures the decision ledger.
	Ledger LedgerConfig `yaml:"ledger"`

	// Audit configures the LLM call audit log.
	Audit AuditConfig `yaml:"audit"`

	// Stores configures the versioned truth/label/config stores.
	Stores StoresConfig `yaml:"stores"`

	// Backlog configures backlog retention and pruning.
	Backlog BacklogConfig `yaml:"backlog"`

	// Server configures the read-only compliance API.
	Server ServerConfig `yaml:"server"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LedgerConfig contains decision ledger configuration.
type LedgerConfig struct {
	// LockTimeout bounds the wait for the append lock.
	LockTimeout time.Duration `yaml:"lock_timeout"`

	// Fsync forces a disk sync after every append. Disable only in
	// tests.
	Fsync bool `yaml:"fsync"`

	// Index configures the derived SQLite query index.
	Index IndexConfig `yaml:"index"`

	// Monitor configures the integrity monitor.
	Monitor MonitorConfig `yaml:"monitor"`
}

// IndexConfig contains configuration for the SQLite query index.
type IndexConfig struct {
	// Enabled turns the index on. When disabled, queries fall back to a
	// linear scan of the log.
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database path. Empty derives
	// <data_dir>/index.db.
	Path string `yaml:"path"`
}

// MonitorConfig contains configuration for the integrity monitor.
type MonitorConfig struct {
	// Enabled starts the fsnotify-based integrity monitor with the
	// server.
	Enabled bool `yaml:"enabled"`

	// DebounceInterval is the quiet period before re-verification.
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// AuditConfig contains LLM call audit configuration.
type AuditConfig struct {
	// LockTimeout bounds the wait for the append lock.
	LockTimeout time.Duration `yaml:"lock_timeout"`

	// Fsync forces a disk sync after every append.
	Fsync bool `yaml:"fsync"`
}

// StoresConfig contains configuration for the versioned stores.
type StoresConfig struct {
	// LockTimeout bounds the wait for a key's write lock.
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// BacklogConfig contains backlog retention configuration.
type BacklogConfig struct {
	// RetentionDays is how long done items are kept. 0 disables
	// pruning.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for scheduled pruning.
	// Empty disables the scheduler.
	PruneSchedule string `yaml:"prune_schedule"`
}

// ServerConfig contains configuration for the compliance API server.
type ServerConfig struct {
	// Enabled starts the HTTP server in scribe run.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address to bind (e.g., ":8484").
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum idle time for keep-alive connections.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains logging and metrics configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is the output format: json, text, or console.
	Format string `yaml:"format"`

	// Output is the log destination: stdout, stderr, or a file path.
	Output string `yaml:"output"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path on the API server.
	Path string `yaml:"path"`
}
