package store

import (
	"context"

	"github.com/nordgren/eventscout/internal/event"
)

// Outcome is the per-row result of an insert attempt.
type Outcome int

const (
	// Inserted means the row was newly written.
	Inserted Outcome = iota
	// Conflict means a row with the same content hash already exists.
	// The sync pipeline treats this the same as Inserted.
	Conflict
	// Error means the row could not be written; it stays unsynced and is
	// retried on the next run.
	Error
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Conflict:
		return "conflict"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// RowResult pairs an input row index with its outcome.
type RowResult struct {
	Index   int
	Outcome Outcome
	Err     error
}

// Store is the external persistent event store.
type Store interface {
	// InsertBatch attempts to persist every event and returns one result
	// per input row, in input order. A batch-level error means no row
	// outcome is known.
	InsertBatch(ctx context.Context, events []*event.Validated) ([]RowResult, error)

	// Close releases client resources.
	Close()
}
