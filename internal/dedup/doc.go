// Package dedup provides the persistent idempotency ledger for synced
// events.
//
// The tracker records each content hash it has seen together with whether
// the event behind it reached durable storage. Only entries confirmed
// synced count as tracked: an entry written with synced=false is a note,
// not a claim, so a failed persist is retried on the next run instead of
// being silently lost. The ledger is a single JSON file with a
// single-writer assumption; every mutating call persists before returning.
package dedup
