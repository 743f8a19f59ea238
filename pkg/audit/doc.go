// Package audit records every LLM invocation into an append-only,
// hash-chained call log and tracks per-session linkage state so decisions
// can cite the calls that produced them.
//
// Call records are redacted before they are hashed or persisted: embedded
// document images and other binary payloads are replaced with fixed
// placeholder tokens carrying a truncated digest, never the raw bytes.
package audit
