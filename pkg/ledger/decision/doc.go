// Package decision provides the decision ledger facade: validated,
// hash-chained appends of DecisionRecords, filtered most-recent-first
// queries, and chain verification, over one decisions.jsonl log.
package decision
