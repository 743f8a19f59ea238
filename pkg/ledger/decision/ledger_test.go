package decision

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"provenant-hq/scribe/pkg/audit"
	"provenant-hq/scribe/pkg/ledger"
	"provenant-hq/scribe/pkg/telemetry/metrics"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()

	cfg := DefaultConfig(t.TempDir())
	cfg.Fsync = false
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

func classification(docID string) *ledger.DecisionRecord {
	return &ledger.DecisionRecord{
		DecisionType:    ledger.DecisionClassification,
		DocID:           docID,
		ClaimID:         "clm-1",
		ActorType:       ledger.ActorSystem,
		ActorID:         "claims-extractor-v2",
		Rationale:       ledger.Rationale{Summary: "layout match", Confidence: 0.9},
		Outcome:         map[string]any{"doc_type": "invoice"},
		VersionBundleID: "vb-1",
	}
}

func TestAppend_FillsChainFields(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()

	first, err := l.Append(ctx, classification("doc-1"))
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if first.DecisionID == "" {
		t.Error("Append() did not assign a decision id")
	}
	if first.Timestamp.IsZero() {
		t.Error("Append() did not stamp a timestamp")
	}
	if first.PrevHash != "" {
		t.Errorf("first record prev_hash = %q, want genesis", first.PrevHash)
	}
	if first.Hash == "" {
		t.Error("Append() did not compute a hash")
	}

	second, err := l.Append(ctx, classification("doc-2"))
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if second.PrevHash != first.Hash {
		t.Errorf("second prev_hash = %q, want %q", second.PrevHash, first.Hash)
	}
}

func TestAppend_RejectsInvalidWithoutWriting(t *testing.T) {
	l := testLedger(t)

	bad := classification("doc-1")
	bad.Outcome = nil

	if _, err := l.Append(context.Background(), bad); !ledger.IsValidation(err) {
		t.Fatalf("Append() error = %v, want ValidationError", err)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Error("invalid record reached the log")
	}
}

func TestQuery_FiltersAndOrder(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()

	for _, docID := range []string{"doc-1", "doc-2", "doc-1"} {
		if _, err := l.Append(ctx, classification(docID)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	review := classification("doc-1")
	review.DecisionType = ledger.DecisionHumanReview
	review.ActorType = ledger.ActorHuman
	review.ActorID = "user-77"
	review.VersionBundleID = ""
	review.Outcome = map[string]any{"reviewer": "user-77"}
	if _, err := l.Append(ctx, review); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	all, err := l.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Query(nil) = %d records, want 4", len(all))
	}
	// Most-recent-first: the human review was appended last.
	if all[0].DecisionType != ledger.DecisionHumanReview {
		t.Errorf("first result type = %q, want the latest record", all[0].DecisionType)
	}

	byDoc, err := l.Query(ctx, &ledger.Query{DocID: "doc-1"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(byDoc) != 3 {
		t.Errorf("Query(doc-1) = %d records, want 3", len(byDoc))
	}

	limited, err := l.Query(ctx, &ledger.Query{Limit: 2})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Query(limit=2) = %d records, want 2", len(limited))
	}

	none, err := l.Query(ctx, &ledger.Query{ClaimID: "clm-absent"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Query(no match) = %d records, want empty result, not an error", len(none))
	}
}

func TestQuery_SinceFilter(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := now

	cfg := DefaultConfig(t.TempDir())
	cfg.Fsync = false
	cfg.Clock = func() time.Time { return clock }
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if _, err := l.Append(ctx, classification("doc-old")); err != nil {
		t.Fatal(err)
	}
	clock = now.Add(2 * time.Hour)
	if _, err := l.Append(ctx, classification("doc-new")); err != nil {
		t.Fatal(err)
	}

	cutoff := now.Add(time.Hour)
	recent, err := l.Query(ctx, &ledger.Query{Since: &cutoff})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(recent) != 1 || recent[0].DocID != "doc-new" {
		t.Errorf("Query(since) = %+v, want only doc-new", recent)
	}
}

// TestDecisionCitesAuditedCall walks the extraction round trip: an LLM
// call is audited, the decision it produced cites the call id, and both
// sides can be recovered from the document id alone.
func TestDecisionCitesAuditedCall(t *testing.T) {
	ctx := context.Background()

	auditCfg := audit.DefaultConfig(t.TempDir())
	auditCfg.Fsync = false
	calls, err := audit.NewService(auditCfg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	recorded, err := calls.Record(ctx, "doc-1", &audit.LLMCallRecord{
		Model: "claims-extractor-v2",
		Messages: []audit.Message{
			{Role: "user", Content: "Extract the line items from this invoice."},
		},
		Response: `{"total": 1249.50}`,
		Status:   audit.CallSuccess,
		DecisionContext: audit.DecisionContext{
			ClaimID: "clm-1",
			DocID:   "doc-1",
			Purpose: "extraction",
		},
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	callID, ok := calls.LastSuccessfulCallID("doc-1")
	if !ok {
		t.Fatal("no last-successful call id after a successful record")
	}
	if callID != recorded.CallID {
		t.Fatalf("session call id = %q, want %q", callID, recorded.CallID)
	}

	l := testLedger(t)
	extraction := classification("doc-1")
	extraction.DecisionType = ledger.DecisionExtraction
	extraction.Rationale = ledger.Rationale{
		Summary:    "line items parsed from model output",
		Confidence: 0.93,
		LLMCallIDs: []string{callID},
	}
	extraction.Outcome = map[string]any{"total": 1249.50}
	if _, err := l.Append(ctx, extraction); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	decisions, err := l.Query(ctx, &ledger.Query{DocID: "doc-1"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("Query(doc-1) = %d decisions, want 1", len(decisions))
	}
	cited := decisions[0].Rationale.LLMCallIDs
	if len(cited) != 1 || cited[0] != callID {
		t.Fatalf("decision llm_call_ids = %v, want [%s]", cited, callID)
	}

	// The cited id resolves back to the full call record.
	evidence, err := calls.Query(ctx, &audit.CallQuery{CallID: cited[0]})
	if err != nil {
		t.Fatalf("audit Query() error = %v", err)
	}
	if len(evidence) != 1 {
		t.Fatalf("audit Query(call id) = %d records, want 1", len(evidence))
	}
	if evidence[0].DecisionContext.DocID != "doc-1" {
		t.Errorf("evidence doc id = %q, want doc-1", evidence[0].DecisionContext.DocID)
	}
}

func TestAppend_DurationMetricUsesWallClock(t *testing.T) {
	registry := prometheus.NewRegistry()

	cfg := DefaultConfig(t.TempDir())
	cfg.Fsync = false
	cfg.Metrics = metrics.NewCollector(&metrics.Config{Enabled: true}, registry)
	// A stamping clock pinned years in the past must not leak into the
	// latency measurement.
	cfg.Clock = func() time.Time { return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC) }
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := l.Append(context.Background(), classification("doc-1")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, family := range families {
		if !strings.HasSuffix(family.GetName(), "ledger_append_duration_seconds") {
			continue
		}
		sum := family.GetMetric()[0].GetHistogram().GetSampleSum()
		if sum > 60 {
			t.Fatalf("append duration sum = %vs, want elapsed wall time, not distance to the record clock", sum)
		}
		return
	}
	t.Fatal("append duration histogram was not registered")
}

// failingIndex fails every query so the ledger must fall back to a scan.
type failingIndex struct{}

func (failingIndex) Rebuild(context.Context, []map[string]any) error { return nil }
func (failingIndex) Insert(context.Context, map[string]any) error    { return nil }
func (failingIndex) Close() error                                    { return nil }
func (failingIndex) Query(context.Context, *ledger.Query) ([]map[string]any, error) {
	return nil, errors.New("index unavailable")
}

func TestQuery_FallsBackOnIndexError(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.Fsync = false
	cfg.Index = failingIndex{}
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if _, err := l.Append(ctx, classification("doc-1")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := l.Query(ctx, &ledger.Query{DocID: "doc-1"})
	if err != nil {
		t.Fatalf("Query() with broken index error = %v, want scan fallback", err)
	}
	if len(records) != 1 {
		t.Errorf("fallback Query() = %d records, want 1", len(records))
	}
}

func TestVerifyIntegrity_DetectsTamper(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.Append(ctx, classification("doc-1")); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	result, err := l.VerifyIntegrity(ctx)
	if err != nil {
		t.Fatalf("VerifyIntegrity() error = %v", err)
	}
	if !result.Valid || result.RecordCount != 3 {
		t.Fatalf("VerifyIntegrity() = %+v, want valid with 3 records", result)
	}

	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatal(err)
	}
	// Same-length edit so only the content hash, not the line framing, changes.
	data = bytes.Replace(data, []byte("invoice"), []byte("receipt"), 1)
	if err := os.WriteFile(l.Path(), data, 0o644); err != nil {
		t.Fatal(err)
	}

	l.Verifier().Invalidate()
	result, err = l.VerifyIntegrity(ctx)
	if err != nil {
		t.Fatalf("VerifyIntegrity() error = %v", err)
	}
	if result.Valid {
		t.Fatal("VerifyIntegrity() missed a content edit")
	}
	if result.BreakAt == nil || *result.BreakAt != 1 {
		t.Errorf("break_at = %v, want 1", result.BreakAt)
	}
	if result.Reason != "hash_mismatch" {
		t.Errorf("reason = %q, want hash_mismatch", result.Reason)
	}
}
