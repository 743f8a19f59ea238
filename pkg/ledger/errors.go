package ledger

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError indicates a record was rejected before any write because
// its content is malformed (missing required outcome fields, bad enum
// values). Fully recoverable: the caller must fix the input.
type ValidationError struct {
	Field   string // Dotted path of the offending field (e.g. "outcome.doc_type")
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error [field=%s]: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// LockTimeoutError indicates a write could not be serialized within the
// configured bound. Retryable by the caller with backoff; not fatal to
// the process.
type LockTimeoutError struct {
	Path    string        // Log file whose lock could not be acquired
	Timeout time.Duration // Configured bound
}

// Error implements the error interface.
func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("lock timeout [path=%s]: could not acquire exclusive lock within %s", e.Path, e.Timeout)
}

// NewLockTimeoutError creates a new LockTimeoutError.
func NewLockTimeoutError(path string, timeout time.Duration) *LockTimeoutError {
	return &LockTimeoutError{Path: path, Timeout: timeout}
}

// CorruptLogError indicates a log's content is unparseable. Not
// auto-recoverable: it must be surfaced to an operator, and the core never
// attempts automatic repair.
type CorruptLogError struct {
	Path  string // Log file
	Line  int    // 1-based line number of the unparseable content, 0 if unknown
	Cause error
}

// Error implements the error interface.
func (e *CorruptLogError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("corrupt log [path=%s, line=%d]: %v", e.Path, e.Line, e.Cause)
	}
	return fmt.Sprintf("corrupt log [path=%s]: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *CorruptLogError) Unwrap() error {
	return e.Cause
}

// NewCorruptLogError creates a new CorruptLogError.
func NewCorruptLogError(path string, line int, cause error) *CorruptLogError {
	return &CorruptLogError{Path: path, Line: line, Cause: cause}
}

// NotFoundError indicates a requested entity does not exist. Ordinary,
// recoverable by caller logic. A query with no matches returns an empty
// result instead of this error; NotFoundError is reserved for direct
// lookups of a specific entity.
type NotFoundError struct {
	Kind string // Entity kind ("bundle", "version", "record", "backlog item")
	Key  string // Identifier that was looked up
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(kind, key string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

// DuplicateBundleError indicates a version bundle already exists for a run
// id. Bundles are immutable and 1:1 with runs, so a second create is a
// conflict, not an upsert.
type DuplicateBundleError struct {
	RunID string
}

// Error implements the error interface.
func (e *DuplicateBundleError) Error() string {
	return fmt.Sprintf("version bundle already exists for run %s", e.RunID)
}

// NewDuplicateBundleError creates a new DuplicateBundleError.
func NewDuplicateBundleError(runID string) *DuplicateBundleError {
	return &DuplicateBundleError{RunID: runID}
}

// StorageError wraps a failure in a storage backend with enough context to
// identify the backend and operation that failed.
type StorageError struct {
	Backend   string // "jsonl", "sqlite-index", etc.
	Operation string // "append", "read", "rebuild", etc.
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsLockTimeout reports whether err is a LockTimeoutError.
func IsLockTimeout(err error) bool {
	var lt *LockTimeoutError
	return errors.As(err, &lt)
}

// IsCorruptLog reports whether err is a CorruptLogError.
func IsCorruptLog(err error) bool {
	var cl *CorruptLogError
	return errors.As(err, &cl)
}

// IsDuplicateBundle reports whether err is a DuplicateBundleError.
func IsDuplicateBundle(err error) bool {
	var db *DuplicateBundleError
	return errors.As(err, &db)
}
