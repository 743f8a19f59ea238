//go:build !unix

package chain

import (
	"errors"
	"os"
)

var errLockHeld = errors.New("lock held by another writer")

// sentinelSuffix marks the exclusive-create sentinel used where flock(2) is
// unavailable. Creation with O_EXCL is atomic on every supported filesystem.
const sentinelSuffix = ".held"

// tryLock emulates a non-blocking exclusive lock by atomically creating a
// sentinel file next to the lock file. Unlike flock, the sentinel survives
// a crashed holder; operators remove it manually, matching the no-automatic-
// repair posture of the rest of the log handling.
func tryLock(f *os.File) error {
	s, err := os.OpenFile(f.Name()+sentinelSuffix, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return errLockHeld
		}
		return err
	}
	return s.Close()
}

func unlock(f *os.File) error {
	return os.Remove(f.Name() + sentinelSuffix)
}
