package runlock

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrBusy means another curfew instance holds the lock.
var ErrBusy = errors.New("another instance holds the run lock")

// Lock is an advisory flock held for the process lifetime. It keeps two
// concurrent curfew invocations from draining the same node at once.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes a non-blocking exclusive lock on path. Returns ErrBusy if
// another process already holds it.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	return &Lock{file: f, path: path}, nil
}

// Release drops the lock. The file is left in place; the flock is what
// matters, and removing it would race a concurrent Acquire.
func (l *Lock) Release() error {
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		return fmt.Errorf("failed to unlock %s: %w", l.path, err)
	}
	return l.file.Close()
}
