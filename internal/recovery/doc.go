// Package recovery retries failed browser sessions through an ordered
// chain of remediation strategies.
//
// Each recovery attempt waits out an exponential backoff with jitter and
// then applies exactly one strategy: restart the session, clear cookies
// and cache, rotate the fingerprint profile, rotate the user agent, or
// sleep for a randomized delay.
// The caller retries its failed operation after every remediation and
// comes back with the next attempt index if it fails again. Once the
// strategy list is exhausted the original error is handed back and the
// session is finished.
package recovery
