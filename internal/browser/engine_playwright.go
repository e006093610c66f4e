package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/nordgren/eventscout/internal/fingerprint"
)

var playwrightKeys = map[Key]string{
	KeyEscape: "Escape",
	KeyTab:    "Tab",
	KeyEnter:  "Enter",
}

// playwrightSession drives Chromium through the Playwright driver. Sits
// between rod and chromedp in the preference order: good emulation
// controls (locale, timezone) but a heavier runtime dependency.
type playwrightSession struct {
	id      string
	profile *fingerprint.Profile
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page

	mu     sync.Mutex
	closed bool
}

func newPlaywrightSession(_ context.Context, profile *fingerprint.Profile) (Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright driver: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launching chromium: %w", err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:  playwright.String(profile.UserAgent),
		Locale:     playwright.String(profile.PrimaryLanguage()),
		TimezoneId: playwright.String(profile.Timezone),
		Viewport: &playwright.Size{
			Width:  profile.ViewportWidth,
			Height: profile.ViewportHeight,
		},
	})
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("creating browser context: %w", err)
	}

	script := profile.InitScript()
	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(script)}); err != nil {
		bctx.Close()
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("injecting fingerprint script: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("opening page: %w", err)
	}

	return &playwrightSession{
		id:      uuid.NewString(),
		profile: profile,
		pw:      pw,
		browser: b,
		bctx:    bctx,
		page:    page,
	}, nil
}

func (s *playwrightSession) ID() string                    { return s.id }
func (s *playwrightSession) Engine() string                { return "playwright" }
func (s *playwrightSession) Profile() *fingerprint.Profile { return s.profile }

func (s *playwrightSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return navError(url, err)
	}
	return nil
}

func (s *playwrightSession) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("reading page content: %w", err)
	}
	return html, nil
}

func (s *playwrightSession) Evaluate(ctx context.Context, expr string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := s.page.Evaluate(expr)
	if err != nil {
		return "", fmt.Errorf("evaluating script: %w", err)
	}
	return fmt.Sprint(v), nil
}

func (s *playwrightSession) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.page.Click(selector, playwright.PageClickOptions{
		Timeout: playwright.Float(5000),
	})
	if err != nil {
		return fmt.Errorf("clicking %q: %w", selector, err)
	}
	return nil
}

func (s *playwrightSession) Press(ctx context.Context, keys ...Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, k := range keys {
		pk, ok := playwrightKeys[k]
		if !ok {
			return fmt.Errorf("unmapped key %q", k)
		}
		if err := s.page.Keyboard().Press(pk); err != nil {
			return fmt.Errorf("pressing %q: %w", k, err)
		}
	}
	return nil
}

func (s *playwrightSession) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.page.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return data, nil
}

func (s *playwrightSession) ClearCookies(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.bctx.ClearCookies(); err != nil {
		return fmt.Errorf("clearing cookies: %w", err)
	}
	return nil
}

func (s *playwrightSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if err := s.page.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.bctx.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.browser.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.pw.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return fmt.Errorf("closing playwright session: %w", firstErr)
	}
	return nil
}
