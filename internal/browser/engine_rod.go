package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"

	"github.com/nordgren/eventscout/internal/fingerprint"
)

var rodKeys = map[Key]input.Key{
	KeyEscape: input.Escape,
	KeyTab:    input.Tab,
	KeyEnter:  input.Enter,
}

// rodSession runs on go-rod with the stealth page patches applied before
// any navigation. It is the most detection-resistant engine and therefore
// first in the default preference order.
type rodSession struct {
	id       string
	profile  *fingerprint.Profile
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	mu     sync.Mutex
	closed bool
}

func newRodSession(ctx context.Context, profile *fingerprint.Profile) (Session, error) {
	l := launcher.New().
		Headless(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("no-first-run")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching chromium: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connecting to chromium: %w", err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("creating stealth page: %w", err)
	}

	s := &rodSession{
		id:       uuid.NewString(),
		profile:  profile,
		launcher: l,
		browser:  b,
		page:     page,
	}

	if err := s.applyProfile(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (s *rodSession) applyProfile() error {
	p := s.profile

	override := proto.NetworkSetUserAgentOverride{
		UserAgent:      p.UserAgent,
		AcceptLanguage: strings.Join(p.Languages, ","),
		Platform:       p.Platform,
	}
	if err := override.Call(s.page); err != nil {
		return fmt.Errorf("overriding user agent: %w", err)
	}

	metrics := proto.EmulationSetDeviceMetricsOverride{
		Width:             p.ViewportWidth,
		Height:            p.ViewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}
	if err := metrics.Call(s.page); err != nil {
		return fmt.Errorf("overriding viewport: %w", err)
	}

	if _, err := s.page.EvalOnNewDocument(p.InitScript()); err != nil {
		return fmt.Errorf("injecting fingerprint script: %w", err)
	}

	return nil
}

func (s *rodSession) ID() string                    { return s.id }
func (s *rodSession) Engine() string                { return "rod-stealth" }
func (s *rodSession) Profile() *fingerprint.Profile { return s.profile }

func (s *rodSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	page := s.page.Context(ctx).Timeout(timeout)
	if err := page.Navigate(url); err != nil {
		return navError(url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return navError(url, err)
	}
	return nil
}

func (s *rodSession) Content(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("reading page content: %w", err)
	}
	return html, nil
}

func (s *rodSession) Evaluate(ctx context.Context, expr string) (string, error) {
	res, err := s.page.Context(ctx).Eval("() => (" + expr + ")")
	if err != nil {
		return "", fmt.Errorf("evaluating script: %w", err)
	}
	return res.Value.String(), nil
}

func (s *rodSession) Click(ctx context.Context, selector string) error {
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("finding %q: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("clicking %q: %w", selector, err)
	}
	return nil
}

func (s *rodSession) Press(ctx context.Context, keys ...Key) error {
	page := s.page.Context(ctx)
	for _, k := range keys {
		rk, ok := rodKeys[k]
		if !ok {
			return fmt.Errorf("unmapped key %q", k)
		}
		if err := page.Keyboard.Press(rk); err != nil {
			return fmt.Errorf("pressing %q: %w", k, err)
		}
	}
	return nil
}

func (s *rodSession) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := s.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return data, nil
}

func (s *rodSession) ClearCookies(ctx context.Context) error {
	page := s.page.Context(ctx)
	if err := (proto.NetworkClearBrowserCookies{}).Call(page); err != nil {
		return fmt.Errorf("clearing cookies: %w", err)
	}
	if err := (proto.NetworkClearBrowserCache{}).Call(page); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

func (s *rodSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.browser.Close()
	s.launcher.Cleanup()
	if err != nil {
		return fmt.Errorf("closing browser: %w", err)
	}
	return nil
}
