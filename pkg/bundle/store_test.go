package bundle

import (
	"context"
	"sync"
	"testing"
	"time"

	"provenant-hq/scribe/pkg/ledger"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(&Config{
		Root:    t.TempDir(),
		WorkDir: t.TempDir(), // no git checkout: commit/dirty stay null
	})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func sampleInput(runID string) *CreateInput {
	return &CreateInput{
		RunID:              runID,
		ApplicationVersion: "1.4.2",
		ExtractorVersion:   "2.0.0",
		ModelName:          "gpt-4o",
		ModelVersion:       "2026-04-01",
		PromptTemplateHash: "3a91bc04d2ee81f0",
		ExtractionSpecHash: "77ab01cc93d201ef",
	}
}

func TestCreateAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, sampleInput("run-1"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.BundleID == "" {
		t.Error("Create() did not assign a bundle id")
	}
	if created.CreatedAt.IsZero() {
		t.Error("Create() did not stamp a creation time")
	}
	if created.GitCommit != nil || created.GitDirty != nil {
		t.Errorf("no checkout: git fields = %v/%v, want null", created.GitCommit, created.GitDirty)
	}

	got, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.BundleID != created.BundleID {
		t.Errorf("Get() bundle id = %q, want %q", got.BundleID, created.BundleID)
	}
	if got.ModelName != "gpt-4o" || got.PromptTemplateHash != "3a91bc04d2ee81f0" {
		t.Errorf("Get() = %+v, snapshot fields lost", got)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, sampleInput("run-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := s.Create(ctx, sampleInput("run-1"))
	if !ledger.IsDuplicateBundle(err) {
		t.Fatalf("second Create() error = %v, want DuplicateBundleError", err)
	}

	// The original bundle is untouched.
	got, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() after duplicate error = %v", err)
	}
	if got.RunID != "run-1" {
		t.Errorf("original bundle damaged: %+v", got)
	}
}

func TestCreate_ConcurrentSameRun(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	const creators = 16

	var wg sync.WaitGroup
	created := make([]*VersionBundle, creators)
	errs := make([]error, creators)
	for i := 0; i < creators; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created[i], errs[i] = s.Create(ctx, sampleInput("run-1"))
		}(i)
	}
	wg.Wait()

	// Exactly one creator wins; everyone else gets the duplicate error.
	var winner *VersionBundle
	for i := 0; i < creators; i++ {
		switch {
		case errs[i] == nil:
			if winner != nil {
				t.Fatalf("two creators succeeded: %s and %s", winner.BundleID, created[i].BundleID)
			}
			winner = created[i]
		case !ledger.IsDuplicateBundle(errs[i]):
			t.Errorf("creator %d error = %v, want DuplicateBundleError", i, errs[i])
		}
	}
	if winner == nil {
		t.Fatal("no creator succeeded")
	}

	// The bundle on disk is the winner's, not a later overwrite.
	got, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.BundleID != winner.BundleID {
		t.Errorf("stored bundle id = %q, want winner %q", got.BundleID, winner.BundleID)
	}
}

func TestCreate_RequiresRunID(t *testing.T) {
	s := testStore(t)

	_, err := s.Create(context.Background(), &CreateInput{ModelName: "gpt-4o"})
	if !ledger.IsValidation(err) {
		t.Errorf("Create() without run id error = %v, want ValidationError", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.Get(context.Background(), "run-absent")
	if !ledger.IsNotFound(err) {
		t.Errorf("Get() error = %v, want NotFoundError", err)
	}
}

func TestList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	empty, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("List() on empty store = %v, want empty", empty)
	}

	for _, runID := range []string{"run-b", "run-a", "run-c"} {
		if _, err := s.Create(ctx, sampleInput(runID)); err != nil {
			t.Fatalf("Create(%s) error = %v", runID, err)
		}
	}

	runIDs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"run-a", "run-b", "run-c"}
	if len(runIDs) != len(want) {
		t.Fatalf("List() = %v, want %v", runIDs, want)
	}
	for i := range want {
		if runIDs[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q (sorted)", i, runIDs[i], want[i])
		}
	}
}

func TestCreate_FixedClock(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s, err := NewStore(&Config{
		Root:    t.TempDir(),
		WorkDir: t.TempDir(),
		Clock:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	b, err := s.Create(context.Background(), sampleInput("run-1"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !b.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", b.CreatedAt, now)
	}
}
