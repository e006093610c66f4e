// Package syncer drives the validate, dedup-filter, persist, mark-synced,
// evict pipeline that turns crawled candidates into durable store rows
// exactly once. An event is marked synced only after the store confirms
// the write; anything less is retried on the next run.
package syncer
