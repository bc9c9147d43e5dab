package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"ytvox/internal/util"
)

// LockFileName is created inside the downloads root while a fetch or
// separation writes there.
const LockFileName = ".ytvox.lock"

// ErrBusy reports that another process holds the downloads root.
var ErrBusy = errors.New("downloads directory is busy")

// acquireLock takes the exclusive lock on root without waiting.
func acquireLock(root string) (*flock.Flock, error) {
	if err := util.EnsureDir(root); err != nil {
		return nil, fmt.Errorf("ensure downloads dir: %w", err)
	}
	path := filepath.Join(root, LockFileName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is held by another ytvox process", ErrBusy, path)
	}
	return lock, nil
}
