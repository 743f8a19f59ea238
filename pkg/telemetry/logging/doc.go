// Package logging provides structured logging for the repository.
//
// It wraps log/slog with three output formats (json, text, console),
// configurable destinations, and automatic redaction of sensitive
// fields so claimant PII and credentials never reach log output. Setup
// installs the configured logger as the slog default, which every
// component's slog.Default().With("component", ...) logger inherits.
package logging
