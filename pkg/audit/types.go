package audit

import "time"

// CallStatus is the terminal status of one LLM invocation.
type CallStatus string

const (
	// CallSuccess: the model returned a usable response.
	CallSuccess CallStatus = "success"
	// CallError: the invocation failed (timeout, refusal, transport error).
	// Failed calls are audited like successful ones; they are evidence too.
	CallError CallStatus = "error"
)

// Message is one prompt or response turn sent to the model. Binary and
// image payloads are replaced with placeholders before a message is
// hashed or persisted; the audit log is not a PII vault.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage is the provider-reported token accounting for one call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// DecisionContext carries the caller-supplied hints that later let a
// decision cite this call: which document or claim the call concerned and
// why it was made.
type DecisionContext struct {
	ClaimID string `json:"claim_id,omitempty"`
	DocID   string `json:"doc_id,omitempty"`
	Purpose string `json:"purpose,omitempty"`
}

// LLMCallRecord is one logged invocation of the language model. Like
// decision records, call records live in an append-only hash chain;
// CallID, Timestamp, PrevHash, and Hash are filled by the appender.
type LLMCallRecord struct {
	// CallID uniquely identifies the call. Generated on record if empty.
	CallID string `json:"call_id"`

	// Timestamp is set by the appender at write time.
	Timestamp time.Time `json:"timestamp"`

	// Model is the model identifier the call was made against.
	Model string `json:"model"`

	// Messages is the full prompt, after redaction.
	Messages []Message `json:"messages"`

	// Parameters are the invocation parameters (temperature etc.).
	Parameters map[string]any `json:"parameters,omitempty"`

	// Response is the model's text response, after redaction.
	Response string `json:"response,omitempty"`

	// TokenUsage is the provider-reported token accounting.
	TokenUsage TokenUsage `json:"token_usage"`

	// LatencyMS is the call round-trip time in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// Status is "success" or "error".
	Status CallStatus `json:"status"`

	// Error is the failure message for error calls.
	Error string `json:"error,omitempty"`

	// DecisionContext links the call to the document/claim it concerned.
	DecisionContext DecisionContext `json:"decision_context"`

	// PrevHash and Hash are the chain-integrity fields.
	PrevHash string `json:"prev_hash"`
	Hash     string `json:"hash"`
}

// CallQuery defines filter parameters for reading call records.
// Zero-valued fields are ignored; results are most-recent-first.
type CallQuery struct {
	CallID  string     `json:"call_id,omitempty"`
	ClaimID string     `json:"claim_id,omitempty"`
	DocID   string     `json:"doc_id,omitempty"`
	Purpose string     `json:"purpose,omitempty"`
	Since   *time.Time `json:"since,omitempty"`
	Limit   int        `json:"limit,omitempty"`
}

// Matches reports whether a record passes every filter set on the query.
func (q *CallQuery) Matches(r *LLMCallRecord) bool {
	if q.CallID != "" && r.CallID != q.CallID {
		return false
	}
	if q.ClaimID != "" && r.DecisionContext.ClaimID != q.ClaimID {
		return false
	}
	if q.DocID != "" && r.DecisionContext.DocID != q.DocID {
		return false
	}
	if q.Purpose != "" && r.DecisionContext.Purpose != q.Purpose {
		return false
	}
	if q.Since != nil && r.Timestamp.Before(*q.Since) {
		return false
	}
	return true
}
