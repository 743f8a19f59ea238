package backlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"provenant-hq/scribe/pkg/ledger"
)

// Item statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusFailed     = "failed"
	StatusDone       = "done"
)

// Item is one reprocessing work item: a document that needs (or needed)
// another pass through the pipeline.
type Item struct {
	ItemID    string         `json:"item_id"`
	ClaimID   string         `json:"claim_id,omitempty"`
	DocID     string         `json:"doc_id,omitempty"`
	Status    string         `json:"status"`
	Reason    string         `json:"reason,omitempty"`
	Attempts  int            `json:"attempts"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func validStatus(status string) bool {
	switch status {
	case StatusPending, StatusProcessing, StatusFailed, StatusDone:
		return true
	}
	return false
}

// Store persists backlog items as one JSON file per item under
// <root>/backlog/. Items are small and freely rewritten; the store is
// deliberately outside the append-only audit tree.
type Store struct {
	dir   string
	clock func() time.Time
}

// NewStore creates a backlog store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("backlog directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backlog directory: %w", err)
	}
	return &Store{dir: dir, clock: time.Now}, nil
}

// Put creates or replaces an item. CreatedAt is preserved for existing
// items; UpdatedAt is always advanced.
func (s *Store) Put(ctx context.Context, item *Item) error {
	if item.ItemID == "" {
		return ledger.NewValidationError("item_id", "item_id cannot be empty")
	}
	if strings.ContainsAny(item.ItemID, "/\\") {
		return ledger.NewValidationError("item_id", fmt.Sprintf("invalid item_id %q", item.ItemID))
	}
	if !validStatus(item.Status) {
		return ledger.NewValidationError("status", fmt.Sprintf("unknown status %q", item.Status))
	}

	now := s.clock().UTC()
	if existing, err := s.Get(ctx, item.ItemID); err == nil {
		item.CreatedAt = existing.CreatedAt
	} else if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return ledger.NewStorageError("backlog", "serialize", err)
	}

	path := s.itemPath(item.ItemID)
	tmp, err := os.CreateTemp(s.dir, ".item-*")
	if err != nil {
		return ledger.NewStorageError("backlog", "write", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return ledger.NewStorageError("backlog", "write", err)
	}
	if err := tmp.Close(); err != nil {
		return ledger.NewStorageError("backlog", "write", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return ledger.NewStorageError("backlog", "write", err)
	}
	return nil
}

// Get returns an item by id, or NotFoundError.
func (s *Store) Get(ctx context.Context, itemID string) (*Item, error) {
	data, err := os.ReadFile(s.itemPath(itemID))
	if os.IsNotExist(err) {
		return nil, ledger.NewNotFoundError("backlog item", itemID)
	}
	if err != nil {
		return nil, ledger.NewStorageError("backlog", "read", err)
	}

	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, ledger.NewStorageError("backlog", "decode", err)
	}
	return &item, nil
}

// List returns every item, optionally filtered to one status, sorted by
// item id.
func (s *Store) List(ctx context.Context, status string) ([]*Item, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, ledger.NewStorageError("backlog", "list", err)
	}

	var items []*Item
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		item, err := s.Get(ctx, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		if status != "" && item.Status != status {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })
	return items, nil
}

// delete removes an item file. Only the pruner calls this, and only for
// done items.
func (s *Store) delete(itemID string) error {
	if err := os.Remove(s.itemPath(itemID)); err != nil && !os.IsNotExist(err) {
		return ledger.NewStorageError("backlog", "delete", err)
	}
	return nil
}

func (s *Store) itemPath(itemID string) string {
	return filepath.Join(s.dir, itemID+".json")
}
