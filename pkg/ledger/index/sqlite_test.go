package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provenant-hq/scribe/pkg/ledger"
	"provenant-hq/scribe/pkg/ledger/chain"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()

	idx, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "index.db")))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func envelope(t *testing.T, id, decisionType, claimID, docID string, ts time.Time) map[string]any {
	t.Helper()

	e, err := chain.ToEnvelope(map[string]any{
		"decision_id":   id,
		"decision_type": decisionType,
		"claim_id":      claimID,
		"doc_id":        docID,
		"timestamp":     ts.UTC().Format(time.RFC3339Nano),
	})
	require.NoError(t, err)
	return e
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)

	_, err = Open(&Config{})
	assert.Error(t, err)
}

func TestInsertAndQuery(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	records := []map[string]any{
		envelope(t, "dec-1", "classification", "clm-1", "doc-1", base),
		envelope(t, "dec-2", "extraction", "clm-1", "doc-1", base.Add(time.Minute)),
		envelope(t, "dec-3", "classification", "clm-2", "doc-2", base.Add(2*time.Minute)),
	}
	for _, r := range records {
		require.NoError(t, idx.Insert(ctx, r))
	}

	all, err := idx.Query(ctx, &ledger.Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Most-recent-first.
	assert.Equal(t, "dec-3", chain.EnvelopeString(all[0], "decision_id"))
	assert.Equal(t, "dec-1", chain.EnvelopeString(all[2], "decision_id"))

	byType, err := idx.Query(ctx, &ledger.Query{DecisionType: ledger.DecisionClassification})
	require.NoError(t, err)
	require.Len(t, byType, 2)

	byClaim, err := idx.Query(ctx, &ledger.Query{ClaimID: "clm-2"})
	require.NoError(t, err)
	require.Len(t, byClaim, 1)
	assert.Equal(t, "dec-3", chain.EnvelopeString(byClaim[0], "decision_id"))

	since := base.Add(30 * time.Second)
	recent, err := idx.Query(ctx, &ledger.Query{Since: &since})
	require.NoError(t, err)
	require.Len(t, recent, 2)

	limited, err := idx.Query(ctx, &ledger.Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "dec-3", chain.EnvelopeString(limited[0], "decision_id"))
}

func TestQuery_NoMatchesIsEmpty(t *testing.T) {
	idx := openTestIndex(t)

	results, err := idx.Query(context.Background(), &ledger.Query{DocID: "doc-absent"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRebuild_ReplacesContent(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, idx.Insert(ctx, envelope(t, "dec-stale", "classification", "", "", base)))

	fresh := []map[string]any{
		envelope(t, "dec-1", "classification", "clm-1", "doc-1", base),
		envelope(t, "dec-2", "extraction", "clm-1", "doc-1", base.Add(time.Minute)),
	}
	require.NoError(t, idx.Rebuild(ctx, fresh))

	all, err := idx.Query(ctx, &ledger.Query{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, e := range all {
		assert.NotEqual(t, "dec-stale", chain.EnvelopeString(e, "decision_id"))
	}
}

func TestQuery_PreservesEnvelopeContent(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	in := envelope(t, "dec-1", "classification", "clm-1", "doc-1",
		time.Date(2026, 5, 1, 9, 0, 0, 123456789, time.UTC))
	in["hash"] = "abc123"
	in["prev_hash"] = ""
	require.NoError(t, idx.Insert(ctx, in))

	out, err := idx.Query(ctx, &ledger.Query{DocID: "doc-1"})
	require.NoError(t, err)
	require.Len(t, out, 1)

	// The stored record column is the canonical serialization; the chain
	// fields must survive untouched.
	assert.Equal(t, "abc123", chain.EnvelopeString(out[0], "hash"))

	wantRaw, err := chain.CanonicalBytes(in)
	require.NoError(t, err)
	gotRaw, err := chain.CanonicalBytes(out[0])
	require.NoError(t, err)
	assert.Equal(t, string(wantRaw), string(gotRaw))
}
