package store

import (
	"context"
	"sync"

	"github.com/nordgren/eventscout/internal/event"
)

// Memory is an in-process Store used for dry runs and tests. It keeps the
// same insert-or-skip semantics as the Postgres implementation.
type Memory struct {
	mu     sync.Mutex
	rows   map[string]*event.Validated
	failOn map[string]error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		rows:   make(map[string]*event.Validated),
		failOn: make(map[string]error),
	}
}

// FailWith makes inserts of the given content hash fail with err. Used by
// tests to simulate per-row store failures.
func (m *Memory) FailWith(hash string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[hash] = err
}

// InsertBatch inserts events, skipping hashes already present.
func (m *Memory) InsertBatch(_ context.Context, events []*event.Validated) ([]RowResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make([]RowResult, len(events))
	for i, ev := range events {
		if err, ok := m.failOn[ev.ContentHash]; ok {
			results[i] = RowResult{Index: i, Outcome: Error, Err: err}
			continue
		}
		if _, exists := m.rows[ev.ContentHash]; exists {
			results[i] = RowResult{Index: i, Outcome: Conflict}
			continue
		}
		m.rows[ev.ContentHash] = ev
		results[i] = RowResult{Index: i, Outcome: Inserted}
	}

	return results, nil
}

// Len returns the number of stored rows.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// Close is a no-op.
func (m *Memory) Close() {}
