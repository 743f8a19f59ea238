package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"provenant-hq/scribe/pkg/ledger"
	"provenant-hq/scribe/pkg/telemetry/metrics"
)

// BundleFileName is the per-run snapshot document's name.
const BundleFileName = "bundle.json"

// Config contains configuration for the bundle store.
type Config struct {
	// Root is the directory holding one subdirectory per run id.
	Root string

	// WorkDir is where git inspection starts. Default: the process's
	// working directory.
	WorkDir string

	// Metrics is the optional metrics collector.
	Metrics *metrics.Collector

	// Clock supplies creation timestamps; tests inject a fixed clock.
	Clock func() time.Time
}

// Store persists version bundles, one JSON document per run id. Bundles
// need no hash chain: they are created exactly once and never amended, so
// a second create for the same run is a conflict, not an update.
type Store struct {
	config *Config
	logger *slog.Logger
}

// NewStore creates a bundle store rooted at cfg.Root.
func NewStore(cfg *Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("bundle store root cannot be empty")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		cfg.WorkDir = wd
	}

	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bundle root: %w", err)
	}

	return &Store{
		config: cfg,
		logger: slog.Default().With("component", "bundle"),
	}, nil
}

// Create captures and persists the reproducibility snapshot for a run.
// Fails with DuplicateBundleError when the run already has one. Git state
// is captured best-effort: no checkout means null commit/dirty fields,
// never a failed create.
func (s *Store) Create(ctx context.Context, in *CreateInput) (*VersionBundle, error) {
	b, err := s.create(ctx, in)
	s.config.Metrics.RecordBundleCreate(err)
	return b, err
}

func (s *Store) create(ctx context.Context, in *CreateInput) (*VersionBundle, error) {
	if in.RunID == "" {
		return nil, ledger.NewValidationError("run_id", "run id is required")
	}

	runDir := filepath.Join(s.config.Root, in.RunID)
	path := filepath.Join(runDir, BundleFileName)

	// Fast-path existence check, before git inspection does any work. The
	// authoritative check is the exclusive publish below.
	if _, err := os.Stat(path); err == nil {
		return nil, ledger.NewDuplicateBundleError(in.RunID)
	} else if !os.IsNotExist(err) {
		return nil, ledger.NewStorageError("bundle", "stat", err)
	}

	git := CaptureGitInfo(s.config.WorkDir)
	b := &VersionBundle{
		BundleID:           "vb-" + uuid.NewString(),
		RunID:              in.RunID,
		GitCommit:          git.Commit,
		GitDirty:           git.Dirty,
		ApplicationVersion: in.ApplicationVersion,
		ExtractorVersion:   in.ExtractorVersion,
		ModelName:          in.ModelName,
		ModelVersion:       in.ModelVersion,
		PromptTemplateHash: in.PromptTemplateHash,
		ExtractionSpecHash: in.ExtractionSpecHash,
		CreatedAt:          s.config.Clock().UTC(),
	}

	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, ledger.NewStorageError("bundle", "mkdir", err)
	}
	if err := writeJSONExclusive(path, b); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, ledger.NewDuplicateBundleError(in.RunID)
		}
		return nil, ledger.NewStorageError("bundle", "write", err)
	}

	s.logger.Info("version bundle created",
		"run_id", b.RunID,
		"bundle_id", b.BundleID,
		"model", b.ModelName,
	)
	return b, nil
}

// Get returns the bundle for a run id, or NotFoundError.
func (s *Store) Get(ctx context.Context, runID string) (*VersionBundle, error) {
	path := filepath.Join(s.config.Root, runID, BundleFileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ledger.NewNotFoundError("bundle", runID)
	}
	if err != nil {
		return nil, ledger.NewStorageError("bundle", "read", err)
	}

	var b VersionBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, ledger.NewStorageError("bundle", "decode", err)
	}
	return &b, nil
}

// List returns every run id with a bundle, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.config.Root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, ledger.NewStorageError("bundle", "list", err)
	}

	var runIDs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.config.Root, entry.Name(), BundleFileName)); err == nil {
			runIDs = append(runIDs, entry.Name())
		}
	}
	sort.Strings(runIDs)
	return runIDs, nil
}

// writeJSONExclusive writes v fully to a temp file and publishes it at
// path via link(2). A crashed writer never leaves a partial document
// behind, and the link fails with fs.ErrExist when path already exists,
// so concurrent creators for the same run serialize on the filesystem:
// exactly one wins, the rest see the duplicate. A rename would instead
// silently replace the winner's bundle.
func writeJSONExclusive(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".bundle-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
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
	return os.Link(tmpName, path)
}
