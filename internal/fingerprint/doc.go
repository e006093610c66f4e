// Package fingerprint generates coherent browser-identity profiles.
//
// A profile bundles every attribute an instrumented page can read back from
// navigator, screen, and WebGL so that all of them tell the same story: the
// platform always agrees with the operating system implied by the user
// agent, hardware values come from realistic pools, and the WebGL
// vendor/renderer pair matches the platform's GPU stack. Anti-bot systems
// correlate these signals, so a mismatch between any two of them is a
// reliable automation indicator.
package fingerprint
