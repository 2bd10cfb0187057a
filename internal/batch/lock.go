package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrAlreadyLocked is returned by AcquireLock when another process (or
// another job instance) already owns the fingerprint's lock file.
var ErrAlreadyLocked = errors.New("batch: job already owned by another process")

// Lock is an exclusive-create sentinel file enforcing process-exclusive
// ownership of a single content fingerprint. Orphaned locks left by a
// crash are not auto-detected; the spec explicitly leaves that to the
// operator.
type Lock struct {
	path string
}

// AcquireLock creates <fingerprint>.lock under dir with O_EXCL semantics.
func AcquireLock(dir, fingerprint string) (*Lock, error) {
	path := filepath.Join(dir, fingerprint+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrAlreadyLocked
		}
		return nil, fmt.Errorf("batch: acquire lock: %w", err)
	}
	f.Close()
	return &Lock{path: path}, nil
}

// Release removes the lock file. Safe to call once; a second call
// returns an error since the file is already gone.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("batch: release lock: %w", err)
	}
	return nil
}
