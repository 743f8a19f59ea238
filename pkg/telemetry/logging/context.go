package logging

import "context"

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// ClaimIDKey is the context key for claim identifiers.
	ClaimIDKey contextKey = "claim_id"

	// DocIDKey is the context key for document identifiers.
	DocIDKey contextKey = "doc_id"

	// RunIDKey is the context key for pipeline run identifiers.
	RunIDKey contextKey = "run_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithClaimID adds a claim identifier to the context.
func WithClaimID(ctx context.Context, claimID string) context.Context {
	return context.WithValue(ctx, ClaimIDKey, claimID)
}

// GetClaimID retrieves the claim identifier from the context.
func GetClaimID(ctx context.Context) string {
	if claimID, ok := ctx.Value(ClaimIDKey).(string); ok {
		return claimID
	}
	return ""
}

// WithDocID adds a document identifier to the context.
func WithDocID(ctx context.Context, docID string) context.Context {
	return context.WithValue(ctx, DocIDKey, docID)
}

// GetDocID retrieves the document identifier from the context.
func GetDocID(ctx context.Context) string {
	if docID, ok := ctx.Value(DocIDKey).(string); ok {
		return docID
	}
	return ""
}

// WithRunID adds a pipeline run identifier to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the pipeline run identifier from the context.
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if claimID := GetClaimID(ctx); claimID != "" {
		fields = append(fields, "claim_id", claimID)
	}
	if docID := GetDocID(ctx); docID != "" {
		fields = append(fields, "doc_id", docID)
	}
	if runID := GetRunID(ctx); runID != "" {
		fields = append(fields, "run_id", runID)
	}

	return fields
}
