package ledger

import (
	"context"
	"time"
)

// DecisionType identifies the kind of decision a record describes.
type DecisionType string

const (
	// DecisionClassification is an automated document-type classification.
	DecisionClassification DecisionType = "classification"
	// DecisionExtraction is an automated field extraction from a document.
	DecisionExtraction DecisionType = "extraction"
	// DecisionQualityGate is a pass/fail judgement over an extraction result.
	DecisionQualityGate DecisionType = "quality_gate"
	// DecisionHumanReview is a human reviewer's assessment of pipeline output.
	DecisionHumanReview DecisionType = "human_review"
	// DecisionOverride is a correction of an earlier decision. Overrides never
	// edit the original record; they reference it and supersede it logically.
	DecisionOverride DecisionType = "override"
)

// ActorType identifies who made a decision.
type ActorType string

const (
	// ActorSystem is an automated actor; ActorID carries the model identifier.
	ActorSystem ActorType = "system"
	// ActorHuman is a human actor; ActorID carries an internal user id,
	// never an email address or other PII.
	ActorHuman ActorType = "human"
)

// Rationale is the structured explanation attached to a decision.
type Rationale struct {
	// Summary is a short human-readable explanation of the decision.
	Summary string `json:"summary"`

	// Confidence is the actor's confidence in the decision, 0.0-1.0.
	Confidence float64 `json:"confidence"`

	// LLMCallIDs lists the audit-log call ids that produced this decision.
	// Whether retried (failed) calls appear here is the caller's policy;
	// the audit service only ever reports the last successful id.
	LLMCallIDs []string `json:"llm_call_ids,omitempty"`
}

// DecisionRecord is one immutable fact about a decision the system or a
// human made in the claims pipeline. Records are append-only: corrections
// are modeled as new records of type DecisionOverride referencing the
// original, never as in-place edits.
//
// PrevHash and Hash are chain-integrity fields computed by the appender.
// Values supplied by the caller for DecisionID, Timestamp, PrevHash, or
// Hash are overwritten on append.
type DecisionRecord struct {
	// DecisionID uniquely identifies the record. Generated on append if empty.
	DecisionID string `json:"decision_id"`

	// DecisionType is one of the Decision* constants.
	DecisionType DecisionType `json:"decision_type"`

	// Timestamp is set by the appender at write time, not by the caller.
	Timestamp time.Time `json:"timestamp"`

	// ClaimID is an optional reference to the claim the decision concerns.
	ClaimID string `json:"claim_id,omitempty"`

	// DocID is an optional reference to the document the decision concerns.
	DocID string `json:"doc_id,omitempty"`

	// ActorType is "system" or "human".
	ActorType ActorType `json:"actor_type"`

	// ActorID identifies the actor: a model identifier for system actors,
	// an internal user id for human actors.
	ActorID string `json:"actor_id"`

	// Rationale explains the decision and links it to LLM audit records.
	Rationale Rationale `json:"rationale"`

	// Outcome is the decision-type-specific payload. Required keys per type
	// are enforced before append; see ValidateRecord.
	Outcome map[string]any `json:"outcome"`

	// VersionBundleID links the decision to the reproducibility snapshot of
	// the pipeline run that produced it. Required for system actors;
	// optional for out-of-band human review.
	VersionBundleID string `json:"version_bundle_id,omitempty"`

	// PrevHash is the hash of the preceding record in the log, or the empty
	// genesis sentinel for the first record.
	PrevHash string `json:"prev_hash"`

	// Hash is the SHA-256 digest of the record's canonical serialization,
	// excluding this field.
	Hash string `json:"hash"`
}

// Query defines filter parameters for reading decision records.
// Zero-valued fields are ignored. Results are always most-recent-first.
type Query struct {
	// DecisionType filters by decision type.
	DecisionType DecisionType `json:"decision_type,omitempty"`

	// DocID filters by document reference.
	DocID string `json:"doc_id,omitempty"`

	// ClaimID filters by claim reference.
	ClaimID string `json:"claim_id,omitempty"`

	// Since is an inclusive lower bound on the record timestamp.
	Since *time.Time `json:"since,omitempty"`

	// Limit caps the number of records returned. 0 means no cap.
	Limit int `json:"limit,omitempty"`
}

// Appender is the write half of a ledger backend. Append fills in the
// identity, timestamp, and chain fields of the envelope, persists it,
// and returns the completed envelope. Implementations must serialize
// concurrent appenders on the same log, in-process and across processes.
type Appender interface {
	Append(ctx context.Context, record map[string]any) (map[string]any, error)
}

// Reader is the read half of a ledger backend. ReadAll returns every
// fully-written record in append order. A partially-written final line
// (no trailing newline yet) is excluded, never treated as corruption.
type Reader interface {
	ReadAll(ctx context.Context) ([]map[string]any, error)
}

// Verifier replays a log and reports the first point of divergence.
type Verifier interface {
	Verify(ctx context.Context) (*VerifyResult, error)
}

// VerifyResult reports the outcome of a chain verification pass.
type VerifyResult struct {
	// Valid is true when every record's hash and chain link check out.
	Valid bool `json:"valid"`

	// RecordCount is the number of records examined.
	RecordCount int `json:"record_count"`

	// BreakAt is the 1-based index of the first bad record, nil when valid.
	BreakAt *int `json:"break_at"`

	// Reason is "hash_mismatch", "chain_mismatch", or "parse_error" when
	// Valid is false; empty otherwise.
	Reason string `json:"reason,omitempty"`
}
