package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"provenant-hq/scribe/pkg/audit"
	"provenant-hq/scribe/pkg/ledger"
)

// maxQueryLimit caps the number of records a single request can return.
const maxQueryLimit = 1000

// errorResponse is the JSON body for error responses.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case ledger.IsNotFound(err):
		status = http.StatusNotFound
	case ledger.IsValidation(err):
		status = http.StatusBadRequest
	case ledger.IsLockTimeout(err):
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// handleHealth serves the liveness endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIntegrity verifies every hash-chained log and reports the
// results. The HTTP status is 200 even for a broken chain: a broken
// chain is a finding, not a request failure.
func (s *Server) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	report := make(map[string]*ledger.VerifyResult)

	result, err := s.ledger.VerifyIntegrity(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	report["decisions"] = result

	if s.audit != nil {
		result, err := s.audit.VerifyIntegrity(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		report["llm_calls"] = result
	}

	s.writeJSON(w, http.StatusOK, report)
}

// handleDecisions serves filtered decision records, most recent first.
func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	q := &ledger.Query{
		DecisionType: ledger.DecisionType(r.URL.Query().Get("decision_type")),
		DocID:        r.URL.Query().Get("doc_id"),
		ClaimID:      r.URL.Query().Get("claim_id"),
	}

	var err error
	if q.Since, err = parseSince(r); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if q.Limit, err = parseLimit(r); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	records, err := s.ledger.Query(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"decisions": records,
		"count":     len(records),
	})
}

// handleLLMCalls serves filtered LLM call records, most recent first.
func (s *Server) handleLLMCalls(w http.ResponseWriter, r *http.Request) {
	q := &audit.CallQuery{
		CallID:  r.URL.Query().Get("call_id"),
		ClaimID: r.URL.Query().Get("claim_id"),
		DocID:   r.URL.Query().Get("doc_id"),
		Purpose: r.URL.Query().Get("purpose"),
	}

	var err error
	if q.Since, err = parseSince(r); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if q.Limit, err = parseLimit(r); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	records, err := s.audit.Query(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"calls": records,
		"count": len(records),
	})
}

// handleBundles lists the run ids with a version bundle.
func (s *Server) handleBundles(w http.ResponseWriter, r *http.Request) {
	runIDs, err := s.bundles.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_ids": runIDs,
		"count":   len(runIDs),
	})
}

// handleBundle serves one version bundle by run id.
func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	b, err := s.bundles.Get(r.Context(), r.PathValue("run_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, b)
}

// handleHistory serves every version of a key, version 1 first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	store, ok := s.stores[r.PathValue("store")]
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown store"})
		return
	}

	history, err := store.History(r.Context(), r.PathValue("key"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"history": history,
		"count":   len(history),
	})
}

// handleLatest serves the current version of a key.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	store, ok := s.stores[r.PathValue("store")]
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown store"})
		return
	}

	entry, err := store.Latest(r.Context(), r.PathValue("key"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

// handleVersion serves one specific version of a key.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	store, ok := s.stores[r.PathValue("store")]
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown store"})
		return
	}

	n, err := strconv.Atoi(r.PathValue("version"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "version must be an integer"})
		return
	}

	entry, err := store.Version(r.Context(), r.PathValue("key"), n)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

// parseSince parses the optional RFC 3339 "since" query parameter.
func parseSince(r *http.Request) (*time.Time, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseLimit parses the optional "limit" query parameter, capped at
// maxQueryLimit.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return maxQueryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &ledger.ValidationError{Field: "limit", Message: "limit must be a non-negative integer"}
	}
	if n == 0 || n > maxQueryLimit {
		n = maxQueryLimit
	}
	return n, nil
}
