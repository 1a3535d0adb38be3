//go:build unix

package singleinstance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Lock holds an exclusive flock on a per-user lock file. The kernel drops
// the lock when the owning process exits.
type Lock struct {
	file *os.File
}

// TryLock takes a non-blocking exclusive lock on the file at path.
// Returns ErrAlreadyRunning if another open file description holds it.
func TryLock(path string) (*Lock, error) {
	if path == "" {
		return nil, errors.New("lock path is required")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %q: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("flock %q: %w", path, err)
	}
	return &Lock{file: f}, nil
}

// Release unlocks and closes the lock file. Safe to call on nil receiver and
// idempotent. The file itself is left in place for the next launch.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	return errors.Join(unlockErr, closeErr)
}

// DefaultLockName returns the per-user lock file path.
func DefaultLockName() string {
	return filepath.Join(os.TempDir(), "readlet-"+sanitizeUsername(currentUsername())+".lock")
}
