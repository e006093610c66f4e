package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nordgren/eventscout/internal/fingerprint"
)

// Key is an abstract keyboard key understood by every engine adapter.
type Key string

const (
	KeyEscape Key = "Escape"
	KeyTab    Key = "Tab"
	KeyEnter  Key = "Enter"
)

// ErrEngineUnavailable is returned by Manager.Create when no automation
// engine could be initialized. It is fatal for the current crawl attempt.
var ErrEngineUnavailable = errors.New("no automation engine available")

// ErrUnsupported is returned by engines that cannot perform an operation,
// such as script evaluation on the plain HTTP engine.
var ErrUnsupported = errors.New("operation not supported by engine")

// NavKind classifies a navigation failure.
type NavKind int

const (
	NavTimeout NavKind = iota
	NavNetwork
)

func (k NavKind) String() string {
	if k == NavTimeout {
		return "timeout"
	}
	return "network"
}

// NavigationError reports a failed page load. Navigation errors are
// retryable through the recovery manager.
type NavigationError struct {
	Kind NavKind
	URL  string
	Err  error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation %s for %s: %v", e.Kind, e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// navError wraps an engine error into a NavigationError, classifying
// context deadline hits as timeouts.
func navError(url string, err error) error {
	kind := NavNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = NavTimeout
	}
	return &NavigationError{Kind: kind, URL: url, Err: err}
}

// Session is one live automated browsing session. Implementations are not
// safe for concurrent use; a session belongs to the goroutine that created
// it until Close.
type Session interface {
	// ID is a unique identifier for logging.
	ID() string

	// Engine returns the engine tag this session runs on.
	Engine() string

	// Profile returns the fingerprint profile bound at creation. It never
	// changes for the life of the session.
	Profile() *fingerprint.Profile

	// Navigate loads the URL, waiting for the load event up to timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// Content returns the current page HTML.
	Content(ctx context.Context) (string, error)

	// Evaluate runs a JavaScript expression in the page and returns its
	// result rendered as a string.
	Evaluate(ctx context.Context, expr string) (string, error)

	// Click clicks the first visible element matching the CSS selector.
	Click(ctx context.Context, selector string) error

	// Press sends keyboard keys to the page, in order.
	Press(ctx context.Context, keys ...Key) error

	// Screenshot captures the viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// ClearCookies drops all cookies (and cache where the engine allows).
	ClearCookies(ctx context.Context) error

	// Close releases all engine resources. It is idempotent.
	Close() error
}
