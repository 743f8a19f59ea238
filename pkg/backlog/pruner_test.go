package backlog

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestStorePutGetList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := &Item{
		ItemID:  "item-001",
		ClaimID: "claim-042",
		DocID:   "doc-007",
		Status:  StatusPending,
		Reason:  "extraction timeout",
	}
	if err := s.Put(ctx, item); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if item.CreatedAt.IsZero() || item.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := s.Get(ctx, "item-001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ClaimID != "claim-042" || got.Status != StatusPending {
		t.Errorf("unexpected item: %+v", got)
	}

	// Status transition preserves CreatedAt.
	created := got.CreatedAt
	got.Status = StatusDone
	if err := s.Put(ctx, got); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	updated, err := s.Get(ctx, "item-001")
	if err != nil {
		t.Fatalf("get after update failed: %v", err)
	}
	if !updated.CreatedAt.Equal(created) {
		t.Error("expected created_at to survive updates")
	}

	done, err := s.List(ctx, StatusDone)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(done) != 1 {
		t.Errorf("expected 1 done item, got %d", len(done))
	}
}

func TestStoreRejectsInvalidItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, &Item{Status: StatusPending}); err == nil {
		t.Error("expected error for empty item_id")
	}
	if err := s.Put(ctx, &Item{ItemID: "a/b", Status: StatusPending}); err == nil {
		t.Error("expected error for path separator in item_id")
	}
	if err := s.Put(ctx, &Item{ItemID: "item-001", Status: "archived"}); err == nil {
		t.Error("expected error for unknown status")
	}
	if _, err := s.Get(ctx, "missing"); err == nil {
		t.Error("expected not-found for missing item")
	}
}

func TestPrunerDeletesOnlyOldDoneItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -60)

	// Old done item: should be pruned.
	s.clock = func() time.Time { return old }
	if err := s.Put(ctx, &Item{ItemID: "old-done", Status: StatusDone}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	// Old failed item: old but not done, must survive.
	if err := s.Put(ctx, &Item{ItemID: "old-failed", Status: StatusFailed}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	// Recent done item: done but within retention, must survive.
	s.clock = func() time.Time { return now }
	if err := s.Put(ctx, &Item{ItemID: "new-done", Status: StatusDone}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	pruner := NewPruner(s, &Config{
		RetentionDays: 30,
		Clock:         func() time.Time { return now },
	})

	deleted, err := pruner.Clean(ctx)
	if err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted item, got %d", deleted)
	}

	if _, err := s.Get(ctx, "old-done"); err == nil {
		t.Error("expected old done item to be deleted")
	}
	if _, err := s.Get(ctx, "old-failed"); err != nil {
		t.Errorf("expected old failed item to survive: %v", err)
	}
	if _, err := s.Get(ctx, "new-done"); err != nil {
		t.Errorf("expected recent done item to survive: %v", err)
	}
}

func TestPrunerRetentionDisabled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.clock = func() time.Time { return time.Now().AddDate(-1, 0, 0) }
	if err := s.Put(ctx, &Item{ItemID: "ancient-done", Status: StatusDone}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	pruner := NewPruner(s, &Config{RetentionDays: 0})
	deleted, err := pruner.Clean(ctx)
	if err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected no deletions with retention disabled, got %d", deleted)
	}
}

func TestSchedulerRejectsInvalidCron(t *testing.T) {
	s := newTestStore(t)
	pruner := NewPruner(s, &Config{RetentionDays: 30, PruneSchedule: "not a cron"})

	if err := pruner.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	s := newTestStore(t)
	pruner := NewPruner(s, &Config{RetentionDays: 30, PruneSchedule: "0 3 * * *"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pruner.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !pruner.scheduler.IsRunning() {
		t.Error("expected scheduler to be running")
	}
	if pruner.NextPruning() == nil {
		t.Error("expected a next run time")
	}

	pruner.Stop()
	if pruner.scheduler.IsRunning() {
		t.Error("expected scheduler to be stopped")
	}
}
