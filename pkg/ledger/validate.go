package ledger

import "fmt"

// requiredOutcomeKeys maps each decision type to the outcome keys that must
// be present before a record is accepted for append.
var requiredOutcomeKeys = map[DecisionType][]string{
	DecisionClassification: {"doc_type"},
	DecisionExtraction:     {"fields"},
	DecisionQualityGate:    {"status"},
	DecisionHumanReview:    {"reviewer"},
	DecisionOverride:       {"original", "reason"},
}

// ValidateRecord checks a decision record's content before any write.
// It fails fast with a ValidationError rather than letting an invalid
// record reach the log, where it would be immutable.
func ValidateRecord(r *DecisionRecord) error {
	if _, ok := requiredOutcomeKeys[r.DecisionType]; !ok {
		return NewValidationError("decision_type", fmt.Sprintf("unknown decision type %q", r.DecisionType))
	}

	switch r.ActorType {
	case ActorSystem, ActorHuman:
	default:
		return NewValidationError("actor_type", fmt.Sprintf("unknown actor type %q", r.ActorType))
	}
	if r.ActorID == "" {
		return NewValidationError("actor_id", "actor id is required")
	}

	// System decisions must be reproducible: they always reference the
	// version bundle of the run that produced them. Out-of-band human
	// review may omit it.
	if r.ActorType == ActorSystem && r.VersionBundleID == "" {
		return NewValidationError("version_bundle_id", "version bundle id is required for system decisions")
	}

	if r.Rationale.Confidence < 0 || r.Rationale.Confidence > 1 {
		return NewValidationError("rationale.confidence", fmt.Sprintf("confidence %v outside [0, 1]", r.Rationale.Confidence))
	}

	if r.Outcome == nil {
		return NewValidationError("outcome", "outcome payload is required")
	}
	for _, key := range requiredOutcomeKeys[r.DecisionType] {
		if _, ok := r.Outcome[key]; !ok {
			return NewValidationError(
				fmt.Sprintf("outcome.%s", key),
				fmt.Sprintf("required for decision type %q", r.DecisionType),
			)
		}
	}

	return nil
}

// Matches reports whether a record passes every filter set on the query.
func (q *Query) Matches(r *DecisionRecord) bool {
	if q.DecisionType != "" && r.DecisionType != q.DecisionType {
		return false
	}
	if q.DocID != "" && r.DocID != q.DocID {
		return false
	}
	if q.ClaimID != "" && r.ClaimID != q.ClaimID {
		return false
	}
	if q.Since != nil && r.Timestamp.Before(*q.Since) {
		return false
	}
	return true
}
