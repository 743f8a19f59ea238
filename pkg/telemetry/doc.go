// Package telemetry groups the observability subpackages of the
// compliance ledger.
//
//   - logging: structured slog-based logging with PII redaction
//   - metrics: Prometheus collectors for appends, verifications, audit
//     calls, and store saves
//
// Both subpackages are optional at every call site: a nil metrics
// collector records nothing, and logging falls back to slog defaults.
package telemetry
