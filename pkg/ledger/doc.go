// Package ledger defines the record model, query filters, error taxonomy,
// and backend interfaces for the compliance ledger.
//
// A DecisionRecord is one immutable fact about a decision the system or a
// human made in the claims pipeline. Records live in an append-only,
// hash-chained JSONL log; corrections are new records of type "override"
// that reference the original, never in-place edits.
//
// This package holds only data and validation. The machinery lives in
// subpackages:
//
//   - chain:    hash-chain appender, verifier, file locking, JSONL reading
//   - decision: the Ledger facade pipeline code appends to and queries
//   - index:    optional SQLite-derived query index (read acceleration)
//   - monitor:  fsnotify-driven integrity monitoring
//
// # Error Taxonomy
//
// Write-path errors always propagate; the core never silently drops a
// record:
//
//   - ValidationError: malformed content, rejected before any write
//   - LockTimeoutError: write could not be serialized in time; retryable
//   - CorruptLogError: unparseable log tail; operator attention required
//
// Read-path misses degrade predictably: a query with no matches returns an
// empty result, while a direct lookup of a missing entity returns
// NotFoundError. An integrity violation is never an error value: it is a
// VerifyResult with Valid=false that callers must surface, not swallow.
package ledger
