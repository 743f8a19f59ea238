package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// Values are unmarshaled over a fully-defaulted configuration, so a file
// only needs to name the fields it changes and an explicit false still
// overrides an enabled-by-default flag. The result is validated before
// being returned.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// No re-defaulting after unmarshal: an explicit zero is a statement
	// (retention_days: 0 disables pruning), and a zeroed-out required
	// field is caught by validation rather than silently restored.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow
// the naming convention SCRIBE_SECTION_FIELD (e.g.,
// SCRIBE_SERVER_LISTEN_ADDRESS) and always take precedence over
// file-based configuration.
//
// The loading sequence is:
// 1. Load YAML over defaults
// 2. Apply environment variable overrides
// 3. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format
// SCRIBE_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("SCRIBE_DATA_DIR"); val != "" {
		cfg.DataDir = val
	}

	// Ledger overrides
	if val := os.Getenv("SCRIBE_LEDGER_LOCK_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Ledger.LockTimeout = d
		}
	}
	if val := os.Getenv("SCRIBE_LEDGER_FSYNC"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Ledger.Fsync = b
		}
	}
	if val := os.Getenv("SCRIBE_LEDGER_INDEX_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Ledger.Index.Enabled = b
		}
	}
	if val := os.Getenv("SCRIBE_LEDGER_INDEX_PATH"); val != "" {
		cfg.Ledger.Index.Path = val
	}
	if val := os.Getenv("SCRIBE_LEDGER_MONITOR_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Ledger.Monitor.Enabled = b
		}
	}

	// Audit overrides
	if val := os.Getenv("SCRIBE_AUDIT_LOCK_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Audit.LockTimeout = d
		}
	}
	if val := os.Getenv("SCRIBE_AUDIT_FSYNC"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Fsync = b
		}
	}

	// Stores overrides
	if val := os.Getenv("SCRIBE_STORES_LOCK_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Stores.LockTimeout = d
		}
	}

	// Backlog overrides
	if val := os.Getenv("SCRIBE_BACKLOG_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Backlog.RetentionDays = i
		}
	}
	if val := os.Getenv("SCRIBE_BACKLOG_PRUNE_SCHEDULE"); val != "" {
		cfg.Backlog.PruneSchedule = val
	}

	// Server overrides
	if val := os.Getenv("SCRIBE_SERVER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Server.Enabled = b
		}
	}
	if val := os.Getenv("SCRIBE_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("SCRIBE_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("SCRIBE_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("SCRIBE_SERVER_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.IdleTimeout = d
		}
	}

	// Telemetry overrides
	if val := os.Getenv("SCRIBE_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("SCRIBE_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("SCRIBE_TELEMETRY_LOGGING_OUTPUT"); val != "" {
		cfg.Telemetry.Logging.Output = val
	}
	if val := os.Getenv("SCRIBE_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("SCRIBE_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
}
