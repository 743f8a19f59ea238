//go:build unix

package chain

import (
	"errors"
	"os"
	"syscall"
)

// errLockHeld reports that another writer currently holds the lock.
var errLockHeld = errors.New("lock held by another writer")

// tryLock attempts a non-blocking exclusive flock(2) on f. flock locks are
// tied to the open file description, so two goroutines in the same process
// contend exactly like two processes do.
func tryLock(f *os.File) error {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == syscall.EWOULDBLOCK {
		return errLockHeld
	}
	return err
}

// unlock releases the flock. The lock is also dropped by the kernel if the
// process dies, so a crashed writer cannot leave the log wedged.
func unlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
