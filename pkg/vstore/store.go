package vstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"provenant-hq/scribe/pkg/ledger"
	"provenant-hq/scribe/pkg/ledger/chain"
	"provenant-hq/scribe/pkg/telemetry/metrics"
)

const (
	// MetadataKey is the reserved entry key holding version metadata.
	MetadataKey = "_version_metadata"

	// HistoryFileName holds every version of a key, append-only.
	HistoryFileName = "history.jsonl"

	// LatestFileName is the fast current-state pointer, replaced
	// atomically on every save.
	LatestFileName = "latest.json"
)

// VersionMetadata is stamped into every saved entry.
type VersionMetadata struct {
	SavedAt       time.Time `json:"saved_at"`
	VersionNumber int       `json:"version_number"`
}

// Entry is one versioned value: the caller's data plus version metadata
// under MetadataKey.
type Entry map[string]any

// Metadata extracts the entry's version metadata.
func (e Entry) Metadata() (VersionMetadata, error) {
	raw, ok := e[MetadataKey]
	if !ok {
		return VersionMetadata{}, fmt.Errorf("entry carries no %s", MetadataKey)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return VersionMetadata{}, err
	}
	var meta VersionMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return VersionMetadata{}, err
	}
	return meta, nil
}

// Config contains configuration for a versioned store.
type Config struct {
	// Root is the directory holding every store.
	Root string

	// Name is the store's name ("truth", "labels", "config"); it becomes
	// a subdirectory of Root.
	Name string

	// LockTimeout bounds the wait for a key's write lock. Default: 5s.
	LockTimeout time.Duration

	// Metrics is the optional metrics collector.
	Metrics *metrics.Collector

	// Clock supplies save timestamps; tests inject a fixed clock.
	Clock func() time.Time
}

// Store is an append-only provenance store for mutable current-state
// entities. Every save produces a new immutable version in the key's
// history log plus an atomically-replaced latest pointer. There is no
// hash chain here: these are editorial histories, deliberately lower
// assurance than the decision ledger, and there are no deletes at all.
//
// Saves to the same key serialize through a per-key file lock; different
// keys are independent and write concurrently.
type Store struct {
	config *Config
	logger *slog.Logger
}

// New creates a versioned store under cfg.Root/cfg.Name.
func New(cfg *Config) (*Store, error) {
	if cfg.Root == "" || cfg.Name == "" {
		return nil, fmt.Errorf("store root and name cannot be empty")
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if err := os.MkdirAll(filepath.Join(cfg.Root, cfg.Name), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	return &Store{
		config: cfg,
		logger: slog.Default().With("component", "vstore", "store", cfg.Name),
	}, nil
}

// NewTruthStore creates the ground-truth history store.
func NewTruthStore(root string, lockTimeout time.Duration, m *metrics.Collector) (*Store, error) {
	return New(&Config{Root: root, Name: "truth", LockTimeout: lockTimeout, Metrics: m})
}

// NewLabelStore creates the label history store.
func NewLabelStore(root string, lockTimeout time.Duration, m *metrics.Collector) (*Store, error) {
	return New(&Config{Root: root, Name: "labels", LockTimeout: lockTimeout, Metrics: m})
}

// NewConfigStore creates the pipeline-configuration history store.
func NewConfigStore(root string, lockTimeout time.Duration, m *metrics.Collector) (*Store, error) {
	return New(&Config{Root: root, Name: "config", LockTimeout: lockTimeout, Metrics: m})
}

// Name returns the store's name.
func (s *Store) Name() string {
	return s.config.Name
}

// Save writes a new version of key: version number is one past the
// current history length, the full entry is appended to the history log,
// and the latest pointer is replaced via temp-file-and-rename so it is
// never partially written.
func (s *Store) Save(ctx context.Context, key string, data map[string]any) (Entry, error) {
	entry, err := s.save(ctx, key, data)
	s.config.Metrics.RecordStoreSave(s.config.Name, err)
	return entry, err
}

func (s *Store) save(ctx context.Context, key string, data map[string]any) (Entry, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if _, reserved := data[MetadataKey]; reserved {
		return nil, ledger.NewValidationError(MetadataKey, "reserved key")
	}

	keyDir := filepath.Join(s.config.Root, s.config.Name, key)
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		return nil, ledger.NewStorageError("vstore", "mkdir", err)
	}
	historyPath := filepath.Join(keyDir, HistoryFileName)

	lock, err := chain.AcquireLock(ctx, historyPath, s.config.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			s.logger.Warn("failed to release store lock", "key", key, "error", rerr)
		}
	}()

	// A history whose last line never got its newline is a dead writer's
	// wreckage. Appending to it would concatenate this entry onto the
	// partial line, corrupting both; refuse, same as the ledger appender.
	if err := checkHistoryTail(historyPath); err != nil {
		return nil, err
	}

	history, err := chain.NewReader(historyPath).ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	entry := make(Entry, len(data)+1)
	for k, v := range data {
		entry[k] = v
	}
	entry[MetadataKey] = VersionMetadata{
		SavedAt:       s.config.Clock().UTC(),
		VersionNumber: len(history) + 1,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return nil, ledger.NewStorageError("vstore", "serialize", err)
	}

	f, err := os.OpenFile(historyPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, ledger.NewStorageError("vstore", "open-history", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return nil, ledger.NewStorageError("vstore", "append-history", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, ledger.NewStorageError("vstore", "sync-history", err)
	}
	if err := f.Close(); err != nil {
		return nil, ledger.NewStorageError("vstore", "close-history", err)
	}

	if err := writeLatestAtomic(filepath.Join(keyDir, LatestFileName), line); err != nil {
		return nil, ledger.NewStorageError("vstore", "write-latest", err)
	}

	return entry, nil
}

// History returns every version of key in order, version 1 first. A key
// that was never saved has an empty history, not an error.
func (s *Store) History(ctx context.Context, key string) ([]Entry, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	historyPath := filepath.Join(s.config.Root, s.config.Name, key, HistoryFileName)
	envelopes, err := chain.NewReader(historyPath).ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(envelopes))
	for i, envelope := range envelopes {
		entries[i] = Entry(envelope)
	}
	return entries, nil
}

// Version returns a specific version of key, 1-based, or NotFoundError.
func (s *Store) Version(ctx context.Context, key string, n int) (Entry, error) {
	history, err := s.History(ctx, key)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(history) {
		return nil, ledger.NewNotFoundError("version", fmt.Sprintf("%s/%s v%d", s.config.Name, key, n))
	}
	return history[n-1], nil
}

// Latest returns the current version of key from the latest pointer, or
// NotFoundError for a key that was never saved.
func (s *Store) Latest(ctx context.Context, key string) (Entry, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.config.Root, s.config.Name, key, LatestFileName))
	if os.IsNotExist(err) {
		return nil, ledger.NewNotFoundError("entry", fmt.Sprintf("%s/%s", s.config.Name, key))
	}
	if err != nil {
		return nil, ledger.NewStorageError("vstore", "read-latest", err)
	}

	envelope, err := chain.DecodeEnvelope(data)
	if err != nil {
		return nil, ledger.NewStorageError("vstore", "decode-latest", err)
	}
	return Entry(envelope), nil
}

// Keys returns every key the store holds, sorted.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.config.Root, s.config.Name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, ledger.NewStorageError("vstore", "list", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			keys = append(keys, entry.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// validateKey rejects keys that would escape the store directory.
func validateKey(key string) error {
	if key == "" {
		return ledger.NewValidationError("key", "key cannot be empty")
	}
	if strings.ContainsAny(key, "/\\") || key == "." || key == ".." {
		return ledger.NewValidationError("key", fmt.Sprintf("invalid key %q", key))
	}
	return nil
}

// checkHistoryTail verifies the last byte of the history file is a
// newline before anything is appended. A missing or empty history is
// fine; a truncated final line means a writer died mid-append and the
// file needs operator attention before it can grow again.
func checkHistoryTail(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return ledger.NewStorageError("vstore", "open-history", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ledger.NewStorageError("vstore", "stat-history", err)
	}
	if info.Size() == 0 {
		return nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return ledger.NewStorageError("vstore", "read-history", err)
	}
	if last[0] != '\n' {
		return ledger.NewCorruptLogError(path, 0, fmt.Errorf("history does not end with a newline-terminated entry"))
	}
	return nil
}

// writeLatestAtomic replaces the latest pointer via temp file and rename.
func writeLatestAtomic(path string, line []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".latest-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(line, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
