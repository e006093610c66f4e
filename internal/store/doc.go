// Package store defines the client interface to the external persistent
// event store and its implementations.
//
// The store is append-only from this pipeline's point of view: InsertBatch
// inserts rows keyed by content hash and reports a per-row outcome of
// inserted, conflict, or error. A conflict means the row already exists and
// is treated identically to success by the sync pipeline. The Postgres
// implementation uses INSERT ... ON CONFLICT DO NOTHING; the memory
// implementation backs dry runs and tests.
package store
