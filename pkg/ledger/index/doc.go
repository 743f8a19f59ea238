// Package index provides an optional SQLite-derived query index over the
// decision log.
//
// The index is read acceleration only. It is rebuilt from the JSONL log by
// replay at startup, updated on each append, and safe to delete at any
// time: the hash-chained log remains the single source of truth, and a
// query that cannot be served by the index falls back to a linear scan.
package index
