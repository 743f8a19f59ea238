package chain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"provenant-hq/scribe/pkg/ledger"
)

// Config contains configuration for a hash-chain appender.
type Config struct {
	// Path is the JSONL log file the appender owns.
	Path string

	// IDField is the envelope key holding the record id ("decision_id" for
	// the decision log, "call_id" for the LLM call log).
	IDField string

	// IDPrefix prefixes generated ids (e.g. "dec", "llm").
	IDPrefix string

	// LockTimeout bounds the wait for the exclusive file lock.
	// Default: 5 seconds.
	LockTimeout time.Duration

	// Fsync forces the appended line to stable storage before the lock is
	// released. Default: true. Disable only in tests.
	Fsync bool

	// Clock supplies record timestamps. Defaults to time.Now. Tests inject
	// a fixed clock here.
	Clock func() time.Time
}

// DefaultConfig returns the default appender configuration for a log path.
func DefaultConfig(path, idField, idPrefix string) *Config {
	return &Config{
		Path:        path,
		IDField:     idField,
		IDPrefix:    idPrefix,
		LockTimeout: 5 * time.Second,
		Fsync:       true,
		Clock:       time.Now,
	}
}

// Appender appends records to an on-disk JSONL log such that each record
// cryptographically commits to its predecessor. One appender instance per
// log file; instances on the same file, in the same process or not,
// serialize through the file lock.
type Appender struct {
	config *Config
	logger *slog.Logger
}

// NewAppender creates an appender for the configured log file, creating the
// parent directory if needed.
func NewAppender(config *Config) (*Appender, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("appender path cannot be empty")
	}
	if config.IDField == "" {
		return nil, fmt.Errorf("appender id field cannot be empty")
	}
	if config.LockTimeout <= 0 {
		config.LockTimeout = 5 * time.Second
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &Appender{
		config: config,
		logger: slog.Default().With("component", "ledger.chain", "log", filepath.Base(config.Path)),
	}, nil
}

// Path returns the log file the appender owns.
func (a *Appender) Path() string {
	return a.config.Path
}

// Append completes the envelope and writes it as one line to the log.
//
// Under the exclusive lock it reads the current tail hash (the genesis
// sentinel for an empty or absent log), fills in the id if blank, stamps
// the timestamp, sets prev_hash, computes the record hash over the
// canonical serialization, and appends the line. Each concurrent caller
// therefore sees the true preceding hash; there are no lost updates and no
// interleaved partial writes.
//
// Returns LockTimeoutError when the lock cannot be acquired in time and
// CorruptLogError when the existing tail is unparseable. The latter is
// deliberate: a log with a broken tail must reach an operator, not be
// silently treated as empty.
func (a *Appender) Append(ctx context.Context, envelope map[string]any) (map[string]any, error) {
	lock, err := AcquireLock(ctx, a.config.Path, a.config.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			a.logger.Warn("failed to release log lock", "error", rerr)
		}
	}()

	prevHash, err := a.tailHash()
	if err != nil {
		return nil, err
	}

	if EnvelopeString(envelope, a.config.IDField) == "" {
		envelope[a.config.IDField] = NewID(a.config.IDPrefix, a.config.Clock())
	}
	envelope[FieldTimestamp] = a.config.Clock().UTC().Format(time.RFC3339Nano)
	envelope[FieldPrevHash] = prevHash

	hash, err := HashEnvelope(envelope)
	if err != nil {
		return nil, err
	}
	envelope[FieldHash] = hash

	line, err := CanonicalBytes(envelope)
	if err != nil {
		return nil, err
	}

	if err := a.writeLine(line); err != nil {
		return nil, ledger.NewStorageError("jsonl", "append", err)
	}

	a.logger.Debug("record appended",
		"id", EnvelopeString(envelope, a.config.IDField),
		"hash", hash,
	)
	return envelope, nil
}

// tailHash returns the hash of the last fully-written record, or the
// genesis sentinel for an empty or absent log. Absence is checked
// explicitly: a missing log is a valid initial state, not an error to be
// caught and reinterpreted.
func (a *Appender) tailHash() (string, error) {
	info, err := os.Stat(a.config.Path)
	if os.IsNotExist(err) {
		return GenesisHash, nil
	}
	if err != nil {
		return "", ledger.NewStorageError("jsonl", "stat", err)
	}
	if info.Size() == 0 {
		return GenesisHash, nil
	}

	line, terminated, err := readTailLine(a.config.Path, info.Size())
	if err != nil {
		return "", ledger.NewStorageError("jsonl", "read-tail", err)
	}
	if !terminated {
		// A tail without a newline means an earlier append died mid-write.
		// That log needs operator attention before it takes further writes.
		return "", ledger.NewCorruptLogError(a.config.Path, 0, fmt.Errorf("log does not end with a newline-terminated record"))
	}

	envelope, err := DecodeEnvelope(line)
	if err != nil {
		return "", ledger.NewCorruptLogError(a.config.Path, 0, fmt.Errorf("last record is not parseable: %w", err))
	}

	hash := EnvelopeString(envelope, FieldHash)
	if hash == "" {
		return "", ledger.NewCorruptLogError(a.config.Path, 0, fmt.Errorf("last record carries no hash"))
	}
	return hash, nil
}

// writeLine appends one newline-terminated line and, when configured,
// fsyncs before returning so the record survives power loss once Append
// returns.
func (a *Appender) writeLine(line []byte) error {
	f, err := os.OpenFile(a.config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	if a.config.Fsync {
		if err := f.Sync(); err != nil {
			return err
		}
	}
	return nil
}

// NewID generates a monotonic-friendly record id: a UTC timestamp
// component for ordering plus a random suffix for uniqueness.
func NewID(prefix string, now time.Time) string {
	ts := now.UTC().Format("20060102T150405")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if prefix == "" {
		return fmt.Sprintf("%s-%s", ts, suffix)
	}
	return fmt.Sprintf("%s-%s-%s", prefix, ts, suffix)
}
