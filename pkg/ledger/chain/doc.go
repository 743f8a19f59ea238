// Package chain implements the tamper-evident hash chain underneath the
// decision ledger and the LLM audit log.
//
// # Log Format
//
// A log is a newline-delimited JSON file. Each line is one record, written
// in canonical form (compact JSON, keys sorted at every nesting level).
// Every record carries two chain fields:
//
//	prev_hash  hex SHA-256 of the preceding record ("" for the first)
//	hash       hex SHA-256 of this record's canonical form, minus "hash"
//
// Because hash commits to prev_hash, each record commits transitively to
// the entire log before it. Altering any byte of any record, or removing
// or reordering records, breaks verification at that point.
//
// # Concurrency
//
// Writers serialize through an advisory lock on a sibling ".lock" file,
// effective across goroutines and across processes. Lock acquisition is
// bounded; a writer that cannot get the lock in time fails with a
// retryable LockTimeoutError instead of blocking indefinitely.
//
// Readers take no lock. They read up to the last newline-terminated line,
// so a concurrent append in progress is simply not visible yet.
//
// # Append Flow
//
//	acquire lock → read tail hash → fill id/timestamp/prev_hash
//	→ hash canonical form → append one line → fsync → release lock
//
// # Verification
//
//	v := chain.NewVerifier("decisions.jsonl")
//	result, err := v.Verify(ctx)
//	if err == nil && !result.Valid {
//	    // result.BreakAt is the 1-based index of the first bad record
//	}
package chain
