package syncer

import (
	"context"
	"fmt"

	"github.com/nordgren/eventscout/internal/dedup"
	"github.com/nordgren/eventscout/internal/event"
	"github.com/nordgren/eventscout/internal/logger"
	"github.com/nordgren/eventscout/internal/store"
)

const (
	// DefaultChunkSize bounds one InsertBatch call.
	DefaultChunkSize = 50
	// DefaultRetentionDays is how long past events stay in the ledger.
	DefaultRetentionDays = 90
)

// Result summarizes one sync run.
type Result struct {
	SyncedCount       int      `json:"synced_count"`
	DuplicatesSkipped int      `json:"duplicates_skipped"`
	EvictedCount      int      `json:"evicted_count"`
	Errors            []string `json:"errors,omitempty"`
}

// Manager runs the sync pipeline against a tracker and a store.
type Manager struct {
	validator *event.Validator
	tracker   *dedup.Tracker
	store     store.Store
	chunkSize int
	retention int
}

// New creates a Manager with the default chunk size and retention window.
func New(validator *event.Validator, tracker *dedup.Tracker, st store.Store) *Manager {
	return &Manager{
		validator: validator,
		tracker:   tracker,
		store:     st,
		chunkSize: DefaultChunkSize,
		retention: DefaultRetentionDays,
	}
}

// SetChunkSize overrides the per-batch row count.
func (m *Manager) SetChunkSize(n int) {
	if n > 0 {
		m.chunkSize = n
	}
}

// SetRetention overrides the ledger retention window in days.
func (m *Manager) SetRetention(days int) {
	if days > 0 {
		m.retention = days
	}
}

// Sync validates candidates, filters out already-synced events, persists
// the remainder in chunks, marks confirmed rows synced, and evicts
// entries past retention. Failed rows stay unsynced and are retried on
// the next run; repeated hashes within one batch collapse to a single
// row.
func (m *Manager) Sync(ctx context.Context, candidates []*event.Candidate) (*Result, error) {
	res := &Result{}

	valid, invalid := m.validator.ValidateAll(candidates)
	res.Errors = append(res.Errors, invalid...)

	fresh := make([]*event.Validated, 0, len(valid))
	seen := make(map[string]bool, len(valid))
	for _, ev := range valid {
		if seen[ev.ContentHash] {
			continue
		}
		seen[ev.ContentHash] = true
		if m.tracker.IsTracked(ev.ContentHash) {
			res.DuplicatesSkipped++
			continue
		}
		fresh = append(fresh, ev)
	}

	// Record discovery before the store attempt so a crash between
	// persist and mark leaves a retryable unsynced entry, never a lost
	// event.
	if err := m.tracker.Upsert(fresh, false); err != nil {
		return res, fmt.Errorf("recording candidates: %w", err)
	}

	confirmed := make([]*event.Validated, 0, len(fresh))
	for start := 0; start < len(fresh); start += m.chunkSize {
		end := start + m.chunkSize
		if end > len(fresh) {
			end = len(fresh)
		}
		chunk := fresh[start:end]

		rows, err := m.store.InsertBatch(ctx, chunk)
		if err != nil {
			// The whole chunk's fate is unknown; stop here and let the
			// next run retry everything unconfirmed.
			res.Errors = append(res.Errors, fmt.Sprintf("insert batch: %v", err))
			break
		}

		for _, row := range rows {
			switch row.Outcome {
			case store.Inserted, store.Conflict:
				confirmed = append(confirmed, chunk[row.Index])
			case store.Error:
				res.Errors = append(res.Errors, fmt.Sprintf(
					"persisting %q: %v", chunk[row.Index].Title, row.Err))
			}
		}
	}

	if err := m.tracker.Upsert(confirmed, true); err != nil {
		return res, fmt.Errorf("marking synced: %w", err)
	}
	res.SyncedCount = len(confirmed)

	evicted, err := m.tracker.Evict(m.retention)
	if err != nil {
		return res, fmt.Errorf("evicting expired entries: %w", err)
	}
	res.EvictedCount = evicted

	logger.Info("Sync complete", logger.Fields{
		"candidates": len(candidates),
		"synced":     res.SyncedCount,
		"duplicates": res.DuplicatesSkipped,
		"evicted":    res.EvictedCount,
		"errors":     len(res.Errors),
	})
	logger.SetGauge("syncer.synced", float64(res.SyncedCount))
	logger.SetGauge("syncer.duplicates", float64(res.DuplicatesSkipped))

	return res, nil
}
