package project

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFile = ".run.lock"

// ErrRunInProgress reports that another process holds the project's run lock.
var ErrRunInProgress = errors.New("a run is already in progress for this project")

// RunLock is a held project run lock.
type RunLock struct {
	lock *flock.Flock
}

// Lock acquires the project's run lock without blocking.
func (p *Project) Lock() (*RunLock, error) {
	lock := flock.New(filepath.Join(p.root, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", p.ID, ErrRunInProgress)
	}
	return &RunLock{lock: lock}, nil
}

// Unlock releases the lock. It is safe to call more than once.
func (l *RunLock) Unlock() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
