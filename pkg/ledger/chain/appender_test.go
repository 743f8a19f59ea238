package chain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"provenant-hq/scribe/pkg/ledger"
)

func testAppender(t *testing.T) *Appender {
	t.Helper()

	cfg := DefaultConfig(filepath.Join(t.TempDir(), "log.jsonl"), "decision_id", "dec")
	cfg.Fsync = false
	a, err := NewAppender(cfg)
	if err != nil {
		t.Fatalf("NewAppender() error = %v", err)
	}
	return a
}

func TestNewAppender_Validation(t *testing.T) {
	if _, err := NewAppender(&Config{IDField: "id"}); err == nil {
		t.Error("NewAppender() accepted empty path")
	}
	if _, err := NewAppender(&Config{Path: "/tmp/x.jsonl"}); err == nil {
		t.Error("NewAppender() accepted empty id field")
	}
}

func TestAppend_Genesis(t *testing.T) {
	a := testAppender(t)
	ctx := context.Background()

	envelope, err := a.Append(ctx, map[string]any{"actor_id": "model-x"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if got := EnvelopeString(envelope, FieldPrevHash); got != GenesisHash {
		t.Errorf("first record prev_hash = %q, want genesis sentinel", got)
	}
	if EnvelopeString(envelope, "decision_id") == "" {
		t.Error("Append() did not generate an id")
	}
	if EnvelopeString(envelope, FieldTimestamp) == "" {
		t.Error("Append() did not stamp a timestamp")
	}

	recomputed, err := HashEnvelope(envelope)
	if err != nil {
		t.Fatalf("HashEnvelope() error = %v", err)
	}
	if recomputed != EnvelopeString(envelope, FieldHash) {
		t.Error("stored hash does not match recomputed hash")
	}
}

func TestAppend_ChainsToPredecessor(t *testing.T) {
	a := testAppender(t)
	ctx := context.Background()

	first, err := a.Append(ctx, map[string]any{"n": "1"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	second, err := a.Append(ctx, map[string]any{"n": "2"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if EnvelopeString(second, FieldPrevHash) != EnvelopeString(first, FieldHash) {
		t.Errorf("second prev_hash = %q, want first hash %q",
			EnvelopeString(second, FieldPrevHash), EnvelopeString(first, FieldHash))
	}
}

func TestAppend_KeepsCallerID(t *testing.T) {
	a := testAppender(t)

	envelope, err := a.Append(context.Background(), map[string]any{"decision_id": "dec-fixed"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if got := EnvelopeString(envelope, "decision_id"); got != "dec-fixed" {
		t.Errorf("id = %q, want caller-supplied dec-fixed", got)
	}
}

func TestAppend_Concurrent(t *testing.T) {
	a := testAppender(t)
	ctx := context.Background()

	const writers = 8
	const perWriter = 5

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := a.Append(ctx, map[string]any{"writer": fmt.Sprint(w)}); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Append() error = %v", err)
	}

	result, err := NewVerifier(a.Path()).Verify(ctx)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !result.Valid {
		t.Errorf("chain invalid after concurrent appends: break_at=%v reason=%s", result.BreakAt, result.Reason)
	}
	if result.RecordCount != writers*perWriter {
		t.Errorf("record count = %d, want %d", result.RecordCount, writers*perWriter)
	}
}

func TestAppend_CorruptTail(t *testing.T) {
	a := testAppender(t)
	ctx := context.Background()

	if _, err := a.Append(ctx, map[string]any{"n": "1"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	f, err := os.OpenFile(a.Path(), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("this is not json\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, err = a.Append(ctx, map[string]any{"n": "2"})
	if !ledger.IsCorruptLog(err) {
		t.Errorf("Append() on corrupt tail error = %v, want CorruptLogError", err)
	}
}

func TestAppend_UnterminatedTail(t *testing.T) {
	a := testAppender(t)
	ctx := context.Background()

	if _, err := a.Append(ctx, map[string]any{"n": "1"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// Simulate a writer that died mid-line.
	f, err := os.OpenFile(a.Path(), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"partial":`); err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, err = a.Append(ctx, map[string]any{"n": "2"})
	if !ledger.IsCorruptLog(err) {
		t.Errorf("Append() on unterminated tail error = %v, want CorruptLogError", err)
	}
}

func TestAcquireLock_Timeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	ctx := context.Background()

	held, err := AcquireLock(ctx, path, time.Second)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	defer held.Release()

	_, err = AcquireLock(ctx, path, 50*time.Millisecond)
	if !ledger.IsLockTimeout(err) {
		t.Errorf("contended AcquireLock() error = %v, want LockTimeoutError", err)
	}
}

func TestAcquireLock_ContextCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")

	held, err := AcquireLock(context.Background(), path, time.Second)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = AcquireLock(ctx, path, 10*time.Second)
	if err != context.DeadlineExceeded {
		t.Errorf("cancelled AcquireLock() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestNewID(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	id := NewID("dec", now)
	if len(id) == 0 {
		t.Fatal("NewID() returned empty id")
	}
	if want := "dec-20260315T103000-"; id[:len(want)] != want {
		t.Errorf("NewID() = %q, want prefix %q", id, want)
	}
	if other := NewID("dec", now); other == id {
		t.Error("NewID() returned the same id twice")
	}
}
