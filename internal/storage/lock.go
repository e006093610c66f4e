package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultLockTTL is how long a lock file is honored before it is presumed
// abandoned by a crashed run.
const DefaultLockTTL = 10 * time.Minute

// ErrLocked is returned when another crawl run holds the lock.
var ErrLocked = fmt.Errorf("another crawl run holds the lock")

// Lock is a held crawl lock. Release removes the lock file.
type Lock struct {
	path string
}

type lockDoc struct {
	PID        int    `json:"pid"`
	AcquiredAt string `json:"acquired_at"`
}

// LockPath returns the crawl lock file location.
func (s *Storage) LockPath() string {
	return filepath.Join(s.dataDir, "crawl.lock")
}

// AcquireLock takes the single-run crawl lock for the data directory. If a
// live lock exists it returns ErrLocked; a lock older than ttl is treated
// as stale and replaced.
func (s *Storage) AcquireLock(ttl time.Duration) (*Lock, error) {
	path := s.LockPath()

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			doc := lockDoc{
				PID:        os.Getpid(),
				AcquiredAt: time.Now().UTC().Format(time.RFC3339),
			}
			enc := json.NewEncoder(f)
			if encErr := enc.Encode(&doc); encErr != nil {
				f.Close()
				os.Remove(path)
				return nil, fmt.Errorf("writing lock file: %w", encErr)
			}
			if err := f.Close(); err != nil {
				os.Remove(path)
				return nil, fmt.Errorf("closing lock file: %w", err)
			}
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}

		stale, staleErr := lockIsStale(path, ttl)
		if staleErr != nil {
			return nil, staleErr
		}
		if !stale {
			return nil, ErrLocked
		}
		// Stale lock from a crashed run; clear it and retry once.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing stale lock: %w", err)
		}
	}

	return nil, ErrLocked
}

// Release removes the lock file. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("releasing lock: %w", err)
	}
	return nil
}

func lockIsStale(path string, ttl time.Duration) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Raced with a release; caller will retry.
			return true, nil
		}
		return false, fmt.Errorf("reading lock file: %w", err)
	}

	var doc lockDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		// Unreadable lock files count as stale.
		return true, nil
	}

	acquired, err := time.Parse(time.RFC3339, doc.AcquiredAt)
	if err != nil {
		return true, nil
	}

	return time.Since(acquired) > ttl, nil
}
