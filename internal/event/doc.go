// Package event provides the candidate and validated event types and the
// normalization pipeline between them.
//
// A Candidate is raw output from a source adapter and carries no identity.
// Validation enforces required fields, normalizes dates and locations,
// derives a price tier and category, and assigns a deterministic SHA1-based
// content hash over title, date, location, and source. The hash is the
// event's identity for deduplication; the link deliberately does not
// participate, so the same listing reached through different URLs still
// counts once.
package event
