package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"llmbatch/internal/config"
)

// ErrNotFound is returned by Delete when no record exists for the given
// fingerprint, distinguishing "nothing to delete" from an I/O failure.
var ErrNotFound = errors.New("batch: no progress record for fingerprint")

// Store persists ProgressRecords and appends processed output to a job's
// target file, both rooted at a single state directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir (see StateDir/EnsureStateDir).
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) recordPath(fingerprint string) string {
	return filepath.Join(s.dir, fingerprint+".json")
}

// Load returns the persisted record for fingerprint, or (nil, nil) if
// the file is missing or unparsable — both treated as "no saved state"
// per spec, never a hard error.
func (s *Store) Load(fingerprint string) (*config.ProgressRecord, error) {
	raw, err := os.ReadFile(s.recordPath(fingerprint))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("batch: read record: %w", err)
	}
	var rec config.ProgressRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, nil
	}
	return &rec, nil
}

// Save appends pendingBatch to targetPath, then writes the fingerprint's
// record. Content is appended before the record is written so a crash
// between the two steps never leaves the record pointing past the file's
// content: the re-run sees the stale record, processes that batch again,
// and appends its output a second time.
func (s *Store) Save(fingerprint, targetPath string, rec config.ProgressRecord, pendingBatch string) error {
	if pendingBatch != "" {
		if err := appendWithSeparator(targetPath, pendingBatch); err != nil {
			return fmt.Errorf("batch: append output: %w", err)
		}
	}

	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: marshal record: %w", err)
	}
	if err := os.WriteFile(s.recordPath(fingerprint), raw, 0o644); err != nil {
		return fmt.Errorf("batch: write record: %w", err)
	}
	return nil
}

// Delete removes the persisted record for fingerprint. A missing file
// is reported as ErrNotFound rather than swallowed.
func (s *Store) Delete(fingerprint string) error {
	err := os.Remove(s.recordPath(fingerprint))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("batch: delete record: %w", err)
	}
	return nil
}

// appendWithSeparator appends batch to the file at path, prefixing it
// with exactly enough newlines to guarantee a blank-line separator from
// whatever the file currently ends with: no separator needed if the
// file is empty or already ends in "\n\n"; one newline if it ends in a
// single "\n"; two newlines otherwise.
func appendWithSeparator(path, batch string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	sep := separatorFor(f, info.Size())

	if _, err := f.WriteString(sep + batch); err != nil {
		return err
	}
	return nil
}

func separatorFor(f *os.File, size int64) string {
	if size == 0 {
		return ""
	}

	n := int64(2)
	if size < n {
		n = size
	}
	tail := make([]byte, n)
	if _, err := f.ReadAt(tail, size-n); err != nil {
		return "\n\n"
	}

	switch {
	case len(tail) == 2 && tail[0] == '\n' && tail[1] == '\n':
		return ""
	case len(tail) >= 1 && tail[len(tail)-1] == '\n':
		return "\n"
	default:
		return "\n\n"
	}
}
