package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"

	"github.com/nordgren/eventscout/internal/fingerprint"
)

var chromedpKeys = map[Key]string{
	KeyEscape: kb.Escape,
	KeyTab:    kb.Tab,
	KeyEnter:  kb.Enter,
}

// chromedpSession drives a headless Chrome over the DevTools protocol.
// Less stealthy than the rod engine (no stealth patch set beyond the
// fingerprint script) but depends on nothing besides a Chrome binary.
type chromedpSession struct {
	id      string
	profile *fingerprint.Profile
	ctx     context.Context
	cancels []context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func newChromedpSession(ctx context.Context, profile *fingerprint.Profile) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(profile.UserAgent),
		chromedp.WindowSize(profile.ViewportWidth, profile.ViewportHeight),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &chromedpSession{
		id:      uuid.NewString(),
		profile: profile,
		ctx:     tabCtx,
		cancels: []context.CancelFunc{tabCancel, allocCancel},
	}

	// Starting the browser and registering the init script up front makes
	// engine availability failures surface here, not at first navigation.
	err := chromedp.Run(tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := cdppage.AddScriptToEvaluateOnNewDocument(profile.InitScript()).Do(ctx)
			return err
		}),
		network.SetExtraHTTPHeaders(map[string]interface{}{
			"Accept-Language": strings.Join(profile.Languages, ","),
		}),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	return s, nil
}

func (s *chromedpSession) ID() string                    { return s.id }
func (s *chromedpSession) Engine() string                { return "chromedp" }
func (s *chromedpSession) Profile() *fingerprint.Profile { return s.profile }

func (s *chromedpSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return navError(url, err)
	}
	return nil
}

func (s *chromedpSession) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var html string
	if err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading page content: %w", err)
	}
	return html, nil
}

func (s *chromedpSession) Evaluate(ctx context.Context, expr string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// String() keeps undefined results representable instead of erroring.
	var out string
	if err := chromedp.Run(s.ctx, chromedp.Evaluate("String("+expr+")", &out)); err != nil {
		return "", fmt.Errorf("evaluating script: %w", err)
	}
	return out, nil
}

func (s *chromedpSession) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("clicking %q: %w", selector, err)
	}
	return nil
}

func (s *chromedpSession) Press(ctx context.Context, keys ...Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, k := range keys {
		ck, ok := chromedpKeys[k]
		if !ok {
			return fmt.Errorf("unmapped key %q", k)
		}
		if err := chromedp.Run(s.ctx, chromedp.KeyEvent(ck)); err != nil {
			return fmt.Errorf("pressing %q: %w", k, err)
		}
	}
	return nil
}

func (s *chromedpSession) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf []byte
	if err := chromedp.Run(s.ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}

func (s *chromedpSession) ClearCookies(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.ClearBrowserCookies().Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("clearing cookies: %w", err)
	}
	return nil
}

func (s *chromedpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	for _, cancel := range s.cancels {
		cancel()
	}
	return nil
}
