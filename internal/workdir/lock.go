package workdir

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock guards a working directory against concurrent runs. The checkpoint
// format assumes exactly one writer; a second process must fail fast rather
// than corrupt state.json.
type Lock struct {
	flock *flock.Flock
}

// Acquire takes the run lock for the given working directory without
// blocking. It fails when another process already holds it.
func Acquire(root string) (*Lock, error) {
	lock := flock.New(filepath.Join(root, "state.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("working directory %s is in use by another run", root)
	}
	return &Lock{flock: lock}, nil
}

// Release drops the run lock.
func (l *Lock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	return l.flock.Unlock()
}
