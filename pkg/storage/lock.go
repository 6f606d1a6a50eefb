package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another run holds the output directory.
var ErrLocked = errors.New("another run is already organizing this output directory")

// RunLock guards an output directory against concurrent runs.
type RunLock struct {
	lock *flock.Flock
}

// AcquireRunLock takes the lock file inside outputPath without blocking.
func AcquireRunLock(outputPath string) (*RunLock, error) {
	dir := filepath.Join(outputPath, StateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	l := flock.New(filepath.Join(dir, "run.lock"))
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &RunLock{lock: l}, nil
}

// Path returns the lock file path.
func (r *RunLock) Path() string {
	return r.lock.Path()
}

// Release unlocks; the lock file itself is left in place.
func (r *RunLock) Release() error {
	return r.lock.Unlock()
}
