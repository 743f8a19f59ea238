package index

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"provenant-hq/scribe/pkg/ledger"
	"provenant-hq/scribe/pkg/ledger/chain"
)

// Config contains configuration for the SQLite query index.
type Config struct {
	// Path is the index database file. The database is disposable: it is
	// rebuilt from the JSONL log at startup and can be deleted at any time.
	Path string

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// DefaultConfig returns the default index configuration.
func DefaultConfig(path string) *Config {
	return &Config{
		Path:        path,
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteIndex is a derived read index over the decision log. It exists
// purely to make query() cheap on large logs; the hash-chained JSONL file
// remains the single source of truth and carries all integrity guarantees.
type SQLiteIndex struct {
	db     *sql.DB
	config *Config
	logger *slog.Logger
}

// Open opens (or creates) the index database and ensures the schema.
func Open(config *Config) (*SQLiteIndex, error) {
	if config == nil || config.Path == "" {
		return nil, fmt.Errorf("index path cannot be empty")
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite-index", "open", err)
	}

	idx := &SQLiteIndex{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "ledger.index"),
	}
	if err := idx.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *SQLiteIndex) initialize() error {
	if _, err := idx.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return ledger.NewStorageError("sqlite-index", "enable_wal", err)
	}
	if _, err := idx.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", idx.config.BusyTimeout.Milliseconds())); err != nil {
		return ledger.NewStorageError("sqlite-index", "set_busy_timeout", err)
	}
	if _, err := idx.db.Exec(Schema); err != nil {
		return ledger.NewStorageError("sqlite-index", "create_schema", err)
	}
	return nil
}

// Rebuild replaces the index content with a full replay of the log.
// Called once at process startup, before the index serves queries.
func (idx *SQLiteIndex) Rebuild(ctx context.Context, records []map[string]any) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.NewStorageError("sqlite-index", "begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM decisions"); err != nil {
		return ledger.NewStorageError("sqlite-index", "truncate", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertDecision)
	if err != nil {
		return ledger.NewStorageError("sqlite-index", "prepare", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if err := insertEnvelope(ctx, stmt, record); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return ledger.NewStorageError("sqlite-index", "commit", err)
	}

	idx.logger.Info("index rebuilt", "records", len(records))
	return nil
}

// Insert adds one freshly-appended record to the index.
func (idx *SQLiteIndex) Insert(ctx context.Context, record map[string]any) error {
	stmt, err := idx.db.PrepareContext(ctx, insertDecision)
	if err != nil {
		return ledger.NewStorageError("sqlite-index", "prepare", err)
	}
	defer stmt.Close()
	return insertEnvelope(ctx, stmt, record)
}

// tsColumnFormat pads timestamps to fixed width so the ts column compares
// correctly as text.
const tsColumnFormat = "2006-01-02T15:04:05.000000000Z"

func insertEnvelope(ctx context.Context, stmt *sql.Stmt, record map[string]any) error {
	raw, err := chain.CanonicalBytes(record)
	if err != nil {
		return ledger.NewStorageError("sqlite-index", "serialize", err)
	}

	ts := chain.EnvelopeString(record, "timestamp")
	if parsed, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
		ts = parsed.UTC().Format(tsColumnFormat)
	}

	_, err = stmt.ExecContext(ctx,
		chain.EnvelopeString(record, "decision_id"),
		chain.EnvelopeString(record, "decision_type"),
		chain.EnvelopeString(record, "claim_id"),
		chain.EnvelopeString(record, "doc_id"),
		ts,
		string(raw),
	)
	if err != nil {
		return ledger.NewStorageError("sqlite-index", "insert", err)
	}
	return nil
}

// Query returns matching decision envelopes most-recent-first. seq is the
// insertion order, which within one log equals append order equals chain
// order, so ORDER BY seq DESC is exactly the contract order.
func (idx *SQLiteIndex) Query(ctx context.Context, q *ledger.Query) ([]map[string]any, error) {
	var (
		where []string
		args  []any
	)
	if q.DecisionType != "" {
		where = append(where, "decision_type = ?")
		args = append(args, string(q.DecisionType))
	}
	if q.DocID != "" {
		where = append(where, "doc_id = ?")
		args = append(args, q.DocID)
	}
	if q.ClaimID != "" {
		where = append(where, "claim_id = ?")
		args = append(args, q.ClaimID)
	}
	if q.Since != nil {
		// Fixed-width UTC timestamps compare correctly as text.
		where = append(where, "ts >= ?")
		args = append(args, q.Since.UTC().Format(tsColumnFormat))
	}

	query := "SELECT record FROM decisions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite-index", "query", err)
	}
	defer rows.Close()

	var envelopes []map[string]any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, ledger.NewStorageError("sqlite-index", "scan", err)
		}
		envelope, err := chain.DecodeEnvelope([]byte(raw))
		if err != nil {
			return nil, ledger.NewStorageError("sqlite-index", "decode", err)
		}
		envelopes = append(envelopes, envelope)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.NewStorageError("sqlite-index", "rows", err)
	}
	return envelopes, nil
}

// Close closes the index database.
func (idx *SQLiteIndex) Close() error {
	return idx.db.Close()
}
