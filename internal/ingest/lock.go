package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked reports that another ingestion run holds the lock.
var ErrLocked = errors.New("another ingestion is already running")

// DefaultLockPath is the file lock location shared by the CLI and the
// HTTP data endpoints.
func DefaultLockPath() string {
	return filepath.Join(os.TempDir(), "docent-ingest.lock")
}

// WithLock runs fn under an exclusive cross-process file lock, so a manual
// CLI load cannot race a server-side reload against the same store. The
// lock is not waited on: a held lock returns ErrLocked immediately.
func WithLock(path string, fn func() error) error {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring ingestion lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	defer func() { _ = lock.Unlock() }()

	return fn()
}
