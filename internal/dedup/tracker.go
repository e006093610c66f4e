package dedup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nordgren/eventscout/internal/event"
)

// Entry records that a content hash has been seen and whether the event
// behind it was durably persisted.
type Entry struct {
	Hash    string    `json:"hash"`
	Title   string    `json:"title"`
	Date    string    `json:"date"`
	AddedAt time.Time `json:"added_at"`
	Synced  bool      `json:"synced"`
}

// ledgerFile is the on-disk shape of the tracker state.
type ledgerFile struct {
	UpdatedAt string            `json:"updated_at"`
	Entries   map[string]*Entry `json:"entries"`
}

// Tracker is the persistent deduplication ledger. It is not safe for
// concurrent use from multiple processes; the crawl lock enforces a single
// writer.
type Tracker struct {
	path    string
	entries map[string]*Entry
	now     func() time.Time
}

// Load reads the tracker file, returning an empty tracker if the file does
// not exist yet.
func Load(path string) (*Tracker, error) {
	t := &Tracker{
		path:    path,
		entries: make(map[string]*Entry),
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("reading tracker file: %w", err)
	}

	var lf ledgerFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing tracker file: %w", err)
	}
	if lf.Entries != nil {
		t.entries = lf.Entries
	}

	return t, nil
}

// IsTracked reports whether hash has been seen and confirmed synced.
// Unsynced entries deliberately do not count, so a failed sync attempt is
// retried on the next run.
func (t *Tracker) IsTracked(hash string) bool {
	e, ok := t.entries[hash]
	return ok && e.Synced
}

// Upsert inserts or updates entries for the given events. A true synced
// flag is sticky: it is never flipped back to false by a later upsert.
func (t *Tracker) Upsert(events []*event.Validated, synced bool) error {
	for _, ev := range events {
		existing, ok := t.entries[ev.ContentHash]
		if ok {
			existing.Title = ev.Title
			existing.Date = ev.Date
			if synced {
				existing.Synced = true
			}
			continue
		}
		t.entries[ev.ContentHash] = &Entry{
			Hash:    ev.ContentHash,
			Title:   ev.Title,
			Date:    ev.Date,
			AddedAt: t.now().UTC(),
			Synced:  synced,
		}
	}
	return t.persist()
}

// Evict removes entries whose event date is older than retentionDays,
// regardless of sync state, and returns the number removed.
func (t *Tracker) Evict(retentionDays int) (int, error) {
	cutoff := t.now().UTC().AddDate(0, 0, -retentionDays)

	removed := 0
	for hash, e := range t.entries {
		d, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			// Entries with unreadable dates are kept; eviction is a
			// retention policy, not repair.
			continue
		}
		if d.Before(cutoff) {
			delete(t.entries, hash)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, t.persist()
}

// Len returns the number of entries in the ledger.
func (t *Tracker) Len() int {
	return len(t.entries)
}

// SyncedCount returns the number of entries confirmed synced.
func (t *Tracker) SyncedCount() int {
	n := 0
	for _, e := range t.entries {
		if e.Synced {
			n++
		}
	}
	return n
}

// Entries returns a copy of the ledger entries keyed by hash.
func (t *Tracker) Entries() map[string]Entry {
	out := make(map[string]Entry, len(t.entries))
	for k, v := range t.entries {
		out[k] = *v
	}
	return out
}

// persist writes the ledger to disk. The write goes through a temp file
// and rename so a crash mid-write cannot truncate the previous state.
func (t *Tracker) persist() error {
	lf := ledgerFile{
		UpdatedAt: t.now().UTC().Format(time.RFC3339),
		Entries:   t.entries,
	}

	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tracker: %w", err)
	}

	tmp := t.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("creating tracker directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing tracker: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("replacing tracker file: %w", err)
	}

	return nil
}
