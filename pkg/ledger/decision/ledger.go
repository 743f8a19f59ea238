package decision

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"provenant-hq/scribe/pkg/ledger"
	"provenant-hq/scribe/pkg/ledger/chain"
	"provenant-hq/scribe/pkg/telemetry/metrics"
)

// LogName is the decision log's file name under the ledger root.
const LogName = "decisions.jsonl"

// QueryIndex is an optional derived index serving reads. The JSONL log
// stays authoritative: an index failure degrades queries to a linear scan,
// it never fails an append.
type QueryIndex interface {
	// Rebuild replaces the index content with a full replay of the log.
	Rebuild(ctx context.Context, records []map[string]any) error

	// Insert adds one freshly-appended record.
	Insert(ctx context.Context, record map[string]any) error

	// Query returns matching envelopes most-recent-first, or an error if
	// the index cannot serve the query (callers then fall back to a scan).
	Query(ctx context.Context, q *ledger.Query) ([]map[string]any, error)

	// Close releases index resources.
	Close() error
}

// Config contains configuration for the decision ledger.
type Config struct {
	// Root is the directory holding the ledger's log files. The ledger
	// exclusively owns files under this root.
	Root string

	// LockTimeout bounds the wait for the append lock. Default: 5s.
	LockTimeout time.Duration

	// Fsync forces appended records to stable storage. Default: true.
	Fsync bool

	// Index is the optional derived query index.
	Index QueryIndex

	// Metrics is the optional metrics collector.
	Metrics *metrics.Collector

	// Clock supplies record timestamps; tests inject a fixed clock.
	Clock func() time.Time
}

// DefaultConfig returns the default ledger configuration for a root
// directory.
func DefaultConfig(root string) *Config {
	return &Config{
		Root:        root,
		LockTimeout: 5 * time.Second,
		Fsync:       true,
		Clock:       time.Now,
	}
}

// Ledger is the single entry point pipeline code uses for decisions. It
// composes the hash-chain appender, the tail-safe reader, and the chain
// verifier over one decisions.jsonl log.
//
// Multiple Ledger instances on the same root, in the same process or
// across processes, do not corrupt each other's writes: all mutation
// serializes through the appender's file lock.
type Ledger struct {
	config   *Config
	appender *chain.Appender
	reader   *chain.Reader
	verifier *chain.Verifier
	logger   *slog.Logger
}

// New creates a decision ledger rooted at cfg.Root.
func New(cfg *Config) (*Ledger, error) {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	path := filepath.Join(cfg.Root, LogName)
	ac := chain.DefaultConfig(path, "decision_id", "dec")
	ac.LockTimeout = cfg.LockTimeout
	ac.Fsync = cfg.Fsync
	ac.Clock = cfg.Clock

	appender, err := chain.NewAppender(ac)
	if err != nil {
		return nil, err
	}

	return &Ledger{
		config:   cfg,
		appender: appender,
		reader:   chain.NewReader(path),
		verifier: chain.NewVerifier(path),
		logger:   slog.Default().With("component", "ledger.decision"),
	}, nil
}

// Path returns the decision log file.
func (l *Ledger) Path() string {
	return l.appender.Path()
}

// Verifier returns the ledger's chain verifier, for wiring into the
// integrity monitor.
func (l *Ledger) Verifier() *chain.Verifier {
	return l.verifier
}

// RebuildIndex replays the log into the configured query index. Called
// once at startup; a ledger without an index is a no-op.
func (l *Ledger) RebuildIndex(ctx context.Context) error {
	if l.config.Index == nil {
		return nil
	}
	records, err := l.reader.ReadAll(ctx)
	if err != nil {
		return err
	}
	if err := l.config.Index.Rebuild(ctx, records); err != nil {
		return err
	}
	l.logger.Info("query index rebuilt", "records", len(records))
	return nil
}

// Append validates the record, appends it to the hash chain, and returns
// the completed record with its id, timestamp, and chain fields filled in.
//
// Validation failures surface as ValidationError before anything is
// written. Lock contention past the bound surfaces as LockTimeoutError; a
// broken log tail as CorruptLogError. All three propagate; a decision is
// never silently dropped.
func (l *Ledger) Append(ctx context.Context, record *ledger.DecisionRecord) (*ledger.DecisionRecord, error) {
	// The stopwatch measures elapsed wall time; the injectable clock only
	// stamps records.
	start := time.Now()

	appended, err := l.append(ctx, record)
	l.config.Metrics.RecordAppend(string(record.DecisionType), time.Since(start), err)
	if err != nil {
		if ledger.IsLockTimeout(err) {
			l.config.Metrics.RecordLockTimeout("decisions")
		}
		return nil, err
	}
	return appended, nil
}

func (l *Ledger) append(ctx context.Context, record *ledger.DecisionRecord) (*ledger.DecisionRecord, error) {
	if err := ledger.ValidateRecord(record); err != nil {
		return nil, err
	}

	envelope, err := chain.ToEnvelope(record)
	if err != nil {
		return nil, err
	}

	envelope, err = l.appender.Append(ctx, envelope)
	if err != nil {
		return nil, err
	}

	var appended ledger.DecisionRecord
	if err := chain.FromEnvelope(envelope, &appended); err != nil {
		return nil, err
	}

	if l.config.Index != nil {
		// Index insertion is best-effort: the log write already succeeded
		// and the index can always be rebuilt by replay.
		if ierr := l.config.Index.Insert(ctx, envelope); ierr != nil {
			l.logger.Warn("query index insert failed, index is stale until rebuild", "error", ierr)
		}
	}

	return &appended, nil
}

// Query returns decisions matching the filters, most-recent-first. A query
// with no matches returns an empty slice, not an error.
//
// With an index configured, the index serves the query; on index error the
// ledger falls back to a linear scan of the log. Queries never take the
// write lock and tolerate a concurrent appender: a partially-written final
// line is simply not visible yet.
func (l *Ledger) Query(ctx context.Context, q *ledger.Query) ([]*ledger.DecisionRecord, error) {
	if q == nil {
		q = &ledger.Query{}
	}

	if l.config.Index != nil {
		envelopes, err := l.config.Index.Query(ctx, q)
		if err == nil {
			return decodeEnvelopes(envelopes)
		}
		l.logger.Warn("query index failed, falling back to log scan", "error", err)
	}

	return l.scanQuery(ctx, q)
}

func (l *Ledger) scanQuery(ctx context.Context, q *ledger.Query) ([]*ledger.DecisionRecord, error) {
	var matched []*ledger.DecisionRecord
	err := l.reader.Scan(ctx, func(_ int, envelope map[string]any) error {
		var rec ledger.DecisionRecord
		if err := chain.FromEnvelope(envelope, &rec); err != nil {
			return err
		}
		if q.Matches(&rec) {
			matched = append(matched, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Append order is time order within one log; most-recent-first is a
	// straight reversal.
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

// VerifyIntegrity replays the chain and reports the first divergence. A
// Valid=false result is an alarm the caller must surface; this method
// never converts it into a success.
func (l *Ledger) VerifyIntegrity(ctx context.Context) (*ledger.VerifyResult, error) {
	start := time.Now()
	result, err := l.verifier.Verify(ctx)
	if err != nil {
		return nil, err
	}
	l.config.Metrics.RecordVerify("decisions", result.Valid, result.RecordCount, time.Since(start))
	if !result.Valid {
		l.logger.Error("decision chain integrity violation",
			"break_at", *result.BreakAt,
			"reason", result.Reason,
		)
	}
	return result, nil
}

// Close releases the query index, if any.
func (l *Ledger) Close() error {
	if l.config.Index != nil {
		return l.config.Index.Close()
	}
	return nil
}

func decodeEnvelopes(envelopes []map[string]any) ([]*ledger.DecisionRecord, error) {
	records := make([]*ledger.DecisionRecord, 0, len(envelopes))
	for _, envelope := range envelopes {
		var rec ledger.DecisionRecord
		if err := chain.FromEnvelope(envelope, &rec); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, nil
}
