package audit

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"provenant-hq/scribe/pkg/ledger"
	"provenant-hq/scribe/pkg/ledger/chain"
	"provenant-hq/scribe/pkg/telemetry/metrics"
)

// LogName is the LLM call log's file name under the ledger root.
const LogName = "llm_calls.jsonl"

// Config contains configuration for the audit service.
type Config struct {
	// Root is the directory holding the call log.
	Root string

	// LockTimeout bounds the wait for the append lock. Default: 5s.
	LockTimeout time.Duration

	// Fsync forces appended records to stable storage. Default: true.
	Fsync bool

	// Metrics is the optional metrics collector.
	Metrics *metrics.Collector

	// Clock supplies record timestamps; tests inject a fixed clock.
	Clock func() time.Time
}

// DefaultConfig returns the default audit configuration for a root
// directory.
func DefaultConfig(root string) *Config {
	return &Config{
		Root:        root,
		LockTimeout: 5 * time.Second,
		Fsync:       true,
		Clock:       time.Now,
	}
}

// Service records every model call into an append-only hash chain and
// tracks, per logical session, the most recent successful call id so a
// subsequent decision can cite its evidence.
//
// The session map is the service's only in-memory state. It is keyed by a
// caller-supplied session key (a document id, a pipeline-stage invocation
// id), never inferred from ambient state, and it is process-local: it
// carries linkage hints, not audit data.
type Service struct {
	config   *Config
	appender *chain.Appender
	reader   *chain.Reader
	verifier *chain.Verifier
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]string
}

// NewService creates an audit service rooted at cfg.Root.
func NewService(cfg *Config) (*Service, error) {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	path := filepath.Join(cfg.Root, LogName)
	ac := chain.DefaultConfig(path, "call_id", "llm")
	ac.LockTimeout = cfg.LockTimeout
	ac.Fsync = cfg.Fsync
	ac.Clock = cfg.Clock

	appender, err := chain.NewAppender(ac)
	if err != nil {
		return nil, err
	}

	return &Service{
		config:   cfg,
		appender: appender,
		reader:   chain.NewReader(path),
		verifier: chain.NewVerifier(path),
		logger:   slog.Default().With("component", "audit"),
		sessions: make(map[string]string),
	}, nil
}

// Path returns the call log file.
func (s *Service) Path() string {
	return s.appender.Path()
}

// Verifier returns the call log's chain verifier, for wiring into the
// integrity monitor.
func (s *Service) Verifier() *chain.Verifier {
	return s.verifier
}

// Record redacts, validates, and appends one call record, returning the
// completed record. On a successful call the session's last-successful
// pointer advances to the new call id; on a failed call the previous
// pointer is retained, so a decision can still cite the last good
// evidence after a retry storm.
//
// Whether failed attempts end up in a decision's llm_call_ids is the
// caller's policy: the service appends everything it is given and only
// the session pointer is success-filtered.
func (s *Service) Record(ctx context.Context, sessionKey string, call *LLMCallRecord) (*LLMCallRecord, error) {
	start := time.Now()
	recorded, err := s.record(ctx, call)
	s.config.Metrics.RecordAuditCall(string(call.Status), time.Since(start))
	if err != nil {
		if ledger.IsLockTimeout(err) {
			s.config.Metrics.RecordLockTimeout("llm_calls")
		}
		return nil, err
	}

	if sessionKey != "" && recorded.Status == CallSuccess {
		s.mu.Lock()
		s.sessions[sessionKey] = recorded.CallID
		s.mu.Unlock()
	}
	return recorded, nil
}

func (s *Service) record(ctx context.Context, call *LLMCallRecord) (*LLMCallRecord, error) {
	if call.Model == "" {
		return nil, ledger.NewValidationError("model", "model identifier is required")
	}
	switch call.Status {
	case CallSuccess, CallError:
	default:
		return nil, ledger.NewValidationError("status", "status must be success or error")
	}

	// Redaction happens before hashing: the hash must commit to what the
	// log holds, not to bytes the log refuses to hold.
	redacted := *call
	var count int
	redacted.Messages, count = RedactMessages(call.Messages)
	response, n := RedactString(call.Response)
	redacted.Response = response
	count += n
	s.config.Metrics.RecordRedaction(count)

	envelope, err := chain.ToEnvelope(&redacted)
	if err != nil {
		return nil, err
	}
	envelope, err = s.appender.Append(ctx, envelope)
	if err != nil {
		return nil, err
	}

	var recorded LLMCallRecord
	if err := chain.FromEnvelope(envelope, &recorded); err != nil {
		return nil, err
	}
	return &recorded, nil
}

// LastSuccessfulCallID returns the most recent successful call id recorded
// under the session key, or false when the session has none.
func (s *Service) LastSuccessfulCallID(sessionKey string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sessions[sessionKey]
	return id, ok
}

// ResetSession clears a session's pointer. Called when a new unit of work
// starts so stale evidence from a previous document cannot leak into the
// next one's decisions.
func (s *Service) ResetSession(sessionKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey)
}

// Query returns call records matching the filters, most-recent-first.
// Linear scan semantics, same as the decision ledger's fallback path.
func (s *Service) Query(ctx context.Context, q *CallQuery) ([]*LLMCallRecord, error) {
	if q == nil {
		q = &CallQuery{}
	}

	var matched []*LLMCallRecord
	err := s.reader.Scan(ctx, func(_ int, envelope map[string]any) error {
		var rec LLMCallRecord
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

	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

// VerifyIntegrity replays the call log's chain.
func (s *Service) VerifyIntegrity(ctx context.Context) (*ledger.VerifyResult, error) {
	start := time.Now()
	result, err := s.verifier.Verify(ctx)
	if err != nil {
		return nil, err
	}
	s.config.Metrics.RecordVerify("llm_calls", result.Valid, result.RecordCount, time.Since(start))
	if !result.Valid {
		s.logger.Error("call log integrity violation",
			"break_at", *result.BreakAt,
			"reason", result.Reason,
		)
	}
	return result, nil
}
