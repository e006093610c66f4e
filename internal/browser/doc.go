// Package browser provides the automated browsing session layer.
//
// A Session is one live page in one automation engine, bound to a single
// fingerprint profile for its whole life. The Manager creates sessions by
// walking an ordered engine preference list (most stealthy first): rod with
// stealth patches, playwright, chromedp, and finally a plain HTTP client
// for pages that need no scripting. Callers never see engine types, only
// the Session interface, so every downstream component works the same
// against all engines.
//
// Navigation goes through the Manager so that every page load carries the
// same humanizing treatment: randomized pre- and post-load delays and a
// randomized scroll, avoiding the uniform timing signature that gives
// automation away.
package browser
