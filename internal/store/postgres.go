package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordgren/eventscout/internal/event"
)

const insertSQL = `
INSERT INTO events
  (content_hash, title, event_date, event_time, location, link, description,
   source, price, price_tier, category)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (content_hash) DO NOTHING`

// Postgres is a Store backed by a Postgres events table with a unique key
// on content_hash.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool to the given DSN and verifies the connection.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging store: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// InsertBatch writes events in one pipelined batch. ON CONFLICT DO NOTHING
// makes the insert idempotent per content hash; a zero rows-affected count
// reports Conflict for that row.
func (p *Postgres) InsertBatch(ctx context.Context, events []*event.Validated) ([]RowResult, error) {
	if len(events) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(insertSQL,
			ev.ContentHash, ev.Title, ev.Date, ev.Time, ev.Location,
			ev.Link, ev.Description, ev.Source, ev.Price, ev.PriceTier,
			ev.Category,
		)
	}

	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()

	results := make([]RowResult, len(events))
	for i := range events {
		tag, err := br.Exec()
		switch {
		case err != nil:
			results[i] = RowResult{Index: i, Outcome: Error, Err: err}
		case tag.RowsAffected() == 0:
			results[i] = RowResult{Index: i, Outcome: Conflict}
		default:
			results[i] = RowResult{Index: i, Outcome: Inserted}
		}
	}

	return results, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
