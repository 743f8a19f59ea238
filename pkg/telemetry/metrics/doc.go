// Package metrics provides Prometheus instrumentation for the ledger
// runtime: append and verification counters, lock-timeout tracking, the
// chain_valid gauge the integrity monitor drives, and versioned-store
// counters.
//
// A single Collector is created at startup and handed to each component.
// Every Record* method is nil-safe, so metrics are strictly optional.
package metrics
