// Package config defines the YAML configuration for the scribe service
// and CLI.
//
// Configuration loads in three layers: built-in defaults, the YAML file,
// then SCRIBE_SECTION_FIELD environment variable overrides, with later
// layers winning. Validation collects every field error rather than
// stopping at the first one.
//
// A minimal configuration file:
//
//	data_dir: /var/lib/scribe
//	server:
//	  listen_address: ":8484"
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//
// Everything not named keeps its default; fsync, the SQLite query index
// and metrics are on by default, the integrity monitor is opt-in.
package config
