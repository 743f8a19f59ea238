// Package monitor watches hash-chained log files for out-of-band
// modification and re-verifies their chains when they change.
//
// The ledger's own appends fire the same filesystem events as tampering
// does; the monitor cannot tell them apart and does not try. Instead it
// invalidates the verifier's incremental cache on every event and runs a
// debounced full verification, so a legitimate write burst costs one
// re-verification and an out-of-band edit is caught within the debounce
// window and logged at error level.
package monitor
