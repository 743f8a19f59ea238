package vstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"provenant-hq/scribe/pkg/ledger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(&Config{
		Root:        t.TempDir(),
		Name:        "truth",
		LockTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestStoreVersionNumbers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, value := range []string{"first", "second", "third"} {
		entry, err := s.Save(ctx, "claim-001", map[string]any{"value": value})
		if err != nil {
			t.Fatalf("save %d failed: %v", i+1, err)
		}
		meta, err := entry.Metadata()
		if err != nil {
			t.Fatalf("metadata: %v", err)
		}
		if meta.VersionNumber != i+1 {
			t.Errorf("expected version %d, got %d", i+1, meta.VersionNumber)
		}
		if meta.SavedAt.IsZero() {
			t.Error("expected saved_at to be set")
		}
	}

	history, err := s.History(ctx, "claim-001")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(history))
	}
}

func TestStoreGetVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, value := range []string{"first", "second", "third"} {
		if _, err := s.Save(ctx, "claim-001", map[string]any{"value": value}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	entry, err := s.Version(ctx, "claim-001", 2)
	if err != nil {
		t.Fatalf("version lookup failed: %v", err)
	}
	if entry["value"] != "second" {
		t.Errorf("expected second payload, got %v", entry["value"])
	}

	if _, err := s.Version(ctx, "claim-001", 4); err == nil {
		t.Error("expected not-found for version past history")
	}
	if _, err := s.Version(ctx, "claim-001", 0); err == nil {
		t.Error("expected not-found for version zero")
	}
}

func TestStoreLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Latest(ctx, "missing"); err == nil {
		t.Error("expected not-found for never-saved key")
	}

	if _, err := s.Save(ctx, "claim-001", map[string]any{"value": "first"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := s.Save(ctx, "claim-001", map[string]any{"value": "second"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	latest, err := s.Latest(ctx, "claim-001")
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if latest["value"] != "second" {
		t.Errorf("expected latest payload second, got %v", latest["value"])
	}
	meta, err := latest.Metadata()
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.VersionNumber != 2 {
		t.Errorf("expected latest version 2, got %d", meta.VersionNumber)
	}
}

func TestStoreIndependentKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	keys := []string{"claim-001", "claim-002", "claim-003", "claim-004"}

	var wg sync.WaitGroup
	errs := make(chan error, len(keys)*3)
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			for i := 0; i < 3; i++ {
				if _, err := s.Save(ctx, key, map[string]any{"n": i}); err != nil {
					errs <- err
				}
			}
		}(key)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent save failed: %v", err)
	}

	for _, key := range keys {
		history, err := s.History(ctx, key)
		if err != nil {
			t.Fatalf("history for %s failed: %v", key, err)
		}
		if len(history) != 3 {
			t.Errorf("key %s: expected 3 versions, got %d", key, len(history))
		}
	}

	listed, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	if len(listed) != len(keys) {
		t.Errorf("expected %d keys, got %d", len(keys), len(listed))
	}
}

func TestStoreRejectsBadKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "a/b", `a\b`, "..", "."} {
		if _, err := s.Save(ctx, key, map[string]any{"value": 1}); err == nil {
			t.Errorf("expected validation error for key %q", key)
		}
	}
}

func TestStoreRefusesUnterminatedHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, "claim-001", map[string]any{"value": "first"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Simulate a writer that died mid-append, leaving the last line
	// without its newline.
	historyPath := filepath.Join(s.config.Root, s.config.Name, "claim-001", HistoryFileName)
	f, err := os.OpenFile(historyPath, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	if _, err := f.WriteString(`{"value":"torn`); err != nil {
		t.Fatalf("append partial line: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close history: %v", err)
	}

	_, err = s.Save(ctx, "claim-001", map[string]any{"value": "second"})
	if !ledger.IsCorruptLog(err) {
		t.Fatalf("expected corrupt-log error, got %v", err)
	}
}

func TestStoreRejectsReservedMetadataKey(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save(context.Background(), "claim-001", map[string]any{
		MetadataKey: "spoofed",
	})
	if err == nil {
		t.Fatal("expected validation error for reserved metadata key")
	}
}

func TestTypedStoreConstructors(t *testing.T) {
	root := t.TempDir()

	truth, err := NewTruthStore(root, time.Second, nil)
	if err != nil {
		t.Fatalf("truth store: %v", err)
	}
	labels, err := NewLabelStore(root, time.Second, nil)
	if err != nil {
		t.Fatalf("label store: %v", err)
	}
	cfg, err := NewConfigStore(root, time.Second, nil)
	if err != nil {
		t.Fatalf("config store: %v", err)
	}

	for name, s := range map[string]*Store{"truth": truth, "labels": labels, "config": cfg} {
		if s.Name() != name {
			t.Errorf("expected store name %s, got %s", name, s.Name())
		}
	}
}
