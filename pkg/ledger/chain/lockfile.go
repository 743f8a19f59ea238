package chain

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"provenant-hq/scribe/pkg/ledger"
)

// lockRetryBase is the base sleep between lock attempts. Each attempt adds
// jitter so contending writers do not retry in lockstep.
const lockRetryBase = 10 * time.Millisecond

// FileLock is an advisory exclusive lock on a log file, held via a sibling
// ".lock" file so readers never contend with the lock itself. The lock is
// effective across goroutines and across processes sharing the directory.
type FileLock struct {
	path string
	f    *os.File
}

// AcquireLock acquires the exclusive lock guarding path, polling until the
// timeout elapses or ctx is cancelled. It returns a LockTimeoutError when
// the bound is exceeded: a stuck writer must surface a retryable failure,
// never wedge the caller.
func AcquireLock(ctx context.Context, path string, timeout time.Duration) (*FileLock, error) {
	lockPath := path + ".lock"

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %q: %w", lockPath, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		err := tryLock(f)
		if err == nil {
			return &FileLock{path: lockPath, f: f}, nil
		}
		if err != errLockHeld {
			f.Close()
			return nil, fmt.Errorf("failed to lock %q: %w", lockPath, err)
		}

		if time.Now().After(deadline) {
			f.Close()
			return nil, ledger.NewLockTimeoutError(path, timeout)
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-time.After(lockRetryBase + time.Duration(rand.Int63n(int64(lockRetryBase)))):
		}
	}
}

// Release drops the lock. Safe to call once per acquired lock.
func (l *FileLock) Release() error {
	defer l.f.Close()
	if err := unlock(l.f); err != nil {
		return fmt.Errorf("failed to unlock %q: %w", l.path, err)
	}
	return nil
}
