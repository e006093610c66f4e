// Package browsertest provides an in-memory Session implementation for
// tests of components that drive browser sessions.
package browsertest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nordgren/eventscout/internal/browser"
	"github.com/nordgren/eventscout/internal/fingerprint"
)

// FakeSession is a scriptable browser.Session. Pages maps URLs to the
// content Navigate should load; hooks customize individual operations.
type FakeSession struct {
	SessionID  string
	EngineName string
	Prof       *fingerprint.Profile

	// Pages routes Navigate: the matching entry becomes the current page.
	Pages map[string]string
	// Page is the current page content; set directly or via Navigate.
	Page string

	// NavigateErr, when set, is returned by every Navigate call.
	NavigateErr error
	// EvaluateFn, when set, handles Evaluate calls.
	EvaluateFn func(expr string) (string, error)
	// ClickFn, when set, handles Click calls.
	ClickFn func(selector string) error

	NavigateCalls []string
	EvaluateCalls []string
	ClickCalls    []string
	PressCalls    [][]browser.Key
	CookiesWiped  int
	CloseCalls    int
}

// New creates a FakeSession with a generated ID and a minimal profile.
func New() *FakeSession {
	return &FakeSession{
		SessionID:  uuid.NewString(),
		EngineName: "fake",
		Prof: &fingerprint.Profile{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) test",
			Platform:  "Win32",
			Languages: []string{"en-US"},
		},
		Pages: make(map[string]string),
	}
}

func (f *FakeSession) ID() string                    { return f.SessionID }
func (f *FakeSession) Engine() string                { return f.EngineName }
func (f *FakeSession) Profile() *fingerprint.Profile { return f.Prof }

func (f *FakeSession) Navigate(_ context.Context, url string, _ time.Duration) error {
	f.NavigateCalls = append(f.NavigateCalls, url)
	if f.NavigateErr != nil {
		return f.NavigateErr
	}
	if content, ok := f.Pages[url]; ok {
		f.Page = content
	}
	return nil
}

func (f *FakeSession) Content(context.Context) (string, error) {
	return f.Page, nil
}

func (f *FakeSession) Evaluate(_ context.Context, expr string) (string, error) {
	f.EvaluateCalls = append(f.EvaluateCalls, expr)
	if f.EvaluateFn != nil {
		return f.EvaluateFn(expr)
	}
	return "true", nil
}

func (f *FakeSession) Click(_ context.Context, selector string) error {
	f.ClickCalls = append(f.ClickCalls, selector)
	if f.ClickFn != nil {
		return f.ClickFn(selector)
	}
	return nil
}

func (f *FakeSession) Press(_ context.Context, keys ...browser.Key) error {
	f.PressCalls = append(f.PressCalls, keys)
	return nil
}

func (f *FakeSession) Screenshot(context.Context) ([]byte, error) {
	return []byte("png"), nil
}

func (f *FakeSession) ClearCookies(context.Context) error {
	f.CookiesWiped++
	return nil
}

func (f *FakeSession) Close() error {
	f.CloseCalls++
	return nil
}
