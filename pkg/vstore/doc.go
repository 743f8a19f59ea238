// Package vstore provides versioned key-value stores for mutable
// current-state entities: ground truth, labels, and pipeline
// configuration.
//
// Each key keeps two files under its own directory: history.jsonl, an
// append-only log with one full entry per version, and latest.json, a
// fast current-state pointer replaced atomically on every save. Version
// numbers are 1-based and assigned from the history length under a
// per-key file lock, so concurrent savers of the same key serialize
// while distinct keys write independently.
//
// Unlike the decision ledger these histories carry no hash chain; they
// answer "what did we believe at version N" rather than prove
// tamper-evidence.
package vstore
