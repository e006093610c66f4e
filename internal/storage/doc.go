// Package storage provides JSON-based persistence for the durable crawl
// artifacts exchanged between runs.
//
// Two files live in the data directory: candidates.json, the raw candidate
// events produced by the latest crawl, and dedup_tracker.json, managed by
// the dedup package. Because both files assume a single writer, the package
// also provides the crawl lock: a lock file with an embedded timestamp that
// rejects a second concurrent run and expires stale locks left by crashes.
// The default data directory is ~/.local/share/eventscout/.
package storage
