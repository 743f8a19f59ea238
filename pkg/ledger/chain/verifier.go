package chain

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"

	"provenant-hq/scribe/pkg/ledger"
)

// Verification failure reasons.
const (
	// ReasonHashMismatch: a record's stored hash does not match the hash
	// recomputed from its content. The record itself was altered.
	ReasonHashMismatch = "hash_mismatch"
	// ReasonChainMismatch: a record's prev_hash does not match the
	// predecessor's hash. A record was removed, reordered, or spliced in.
	ReasonChainMismatch = "chain_mismatch"
	// ReasonParseError: a record line is not valid JSON.
	ReasonParseError = "parse_error"
)

// Verifier replays a hash-chained log from the start, recomputing every
// hash, and reports the first point of divergence.
//
// Repeated verification is incremental: a successful pass caches the byte
// offset, record count, and tail hash it verified up to, and the next pass
// resumes there. The cache is dropped whenever the file shrinks, the tail
// moves unexpectedly, or Invalidate is called (the integrity monitor calls
// it on out-of-band file events).
type Verifier struct {
	path string

	mu             sync.Mutex
	cached         bool
	verifiedOffset int64
	verifiedCount  int
	verifiedTail   string
}

// NewVerifier creates a verifier for the given log file.
func NewVerifier(path string) *Verifier {
	return &Verifier{path: path}
}

// Path returns the log file the verifier replays.
func (v *Verifier) Path() string {
	return v.path
}

// Invalidate drops the incremental cache so the next Verify replays the
// log from the beginning.
func (v *Verifier) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cached = false
}

// Verify replays the chain and reports the first divergence, resuming from
// the cached position when the cache is still plausible.
//
// On a break, RecordCount and BreakAt both point at the first bad record
// (1-based); records after the break are not examined, because nothing
// past a broken link can be trusted. A partially-written final line is
// excluded from verification entirely.
func (v *Verifier) Verify(ctx context.Context) (*ledger.VerifyResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.verifyLocked(ctx, true)
}

// VerifyFull ignores and rebuilds the incremental cache, replaying the
// whole log unconditionally. The integrity monitor uses this after an
// out-of-band modification event.
func (v *Verifier) VerifyFull(ctx context.Context) (*ledger.VerifyResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cached = false
	return v.verifyLocked(ctx, false)
}

func (v *Verifier) verifyLocked(ctx context.Context, useCache bool) (*ledger.VerifyResult, error) {
	info, err := os.Stat(v.path)
	if os.IsNotExist(err) {
		// Absent log: a valid, empty chain.
		v.cached = false
		return &ledger.VerifyResult{Valid: true}, nil
	}
	if err != nil {
		return nil, ledger.NewStorageError("jsonl", "stat", err)
	}

	offset := int64(0)
	count := 0
	expectedPrev := GenesisHash
	if useCache && v.cached && info.Size() >= v.verifiedOffset {
		offset = v.verifiedOffset
		count = v.verifiedCount
		expectedPrev = v.verifiedTail
	} else {
		v.cached = false
	}

	f, err := os.Open(v.path)
	if err != nil {
		return nil, ledger.NewStorageError("jsonl", "open", err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, ledger.NewStorageError("jsonl", "seek", err)
	}

	r := bufio.NewReaderSize(f, 64*1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, err := r.ReadBytes('\n')
		if err == io.EOF {
			// No trailing newline: a write in flight, not part of the chain yet.
			break
		}
		if err != nil {
			return nil, ledger.NewStorageError("jsonl", "read", err)
		}

		count++
		record := line[:len(line)-1]

		envelope, derr := DecodeEnvelope(record)
		if derr != nil {
			v.cached = false
			return breakResult(count, ReasonParseError), nil
		}

		recomputed, herr := HashEnvelope(envelope)
		if herr != nil {
			v.cached = false
			return breakResult(count, ReasonParseError), nil
		}
		if recomputed != EnvelopeString(envelope, FieldHash) {
			v.cached = false
			return breakResult(count, ReasonHashMismatch), nil
		}
		if EnvelopeString(envelope, FieldPrevHash) != expectedPrev {
			v.cached = false
			return breakResult(count, ReasonChainMismatch), nil
		}

		expectedPrev = EnvelopeString(envelope, FieldHash)
		offset += int64(len(line))
	}

	v.cached = true
	v.verifiedOffset = offset
	v.verifiedCount = count
	v.verifiedTail = expectedPrev

	return &ledger.VerifyResult{Valid: true, RecordCount: count}, nil
}

func breakResult(index int, reason string) *ledger.VerifyResult {
	at := index
	return &ledger.VerifyResult{
		Valid:       false,
		RecordCount: index,
		BreakAt:     &at,
		Reason:      reason,
	}
}
