// Package cli implements the command-line interface for eventscout.
//
// The cli package provides the Cobra-based CLI with crawl, sync, run,
// status, and export commands, text/JSON output formatting, and the
// wiring that builds
// the browser, recovery, captcha, tracker, and store components from
// configuration.
package cli
