package challenge

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nordgren/eventscout/internal/browser"
	"github.com/nordgren/eventscout/internal/captcha"
	"github.com/nordgren/eventscout/internal/logger"
)

// consentKeywords signal a consent or cookie banner. Checked independently
// of botKeywords; a page can carry both.
var consentKeywords = []string{
	"cookie consent",
	"we use cookies",
	"accept cookies",
	"accept all cookies",
	"cookie settings",
	"privacy preferences",
	"manage preferences",
	"gdpr",
	"consent to the use",
}

// botKeywords signal a bot-detection wall. A CAPTCHA widget found by the
// captcha detector takes precedence over a plain keyword hit.
var botKeywords = []string{
	"verify you are human",
	"checking your browser",
	"bot detected",
	"access denied",
	"unusual traffic",
	"security check",
	"ddos protection",
	"are you a robot",
	"attention required",
}

// affirmativeWords is the allow-list of button texts that accept a consent
// banner. Ordered by specificity; the first visible match is clicked.
var affirmativeWords = []string{
	"accept all",
	"allow all",
	"accept cookies",
	"i accept",
	"i agree",
	"agree",
	"accept",
	"allow",
	"got it",
	"ok",
}

// consentSelectors narrow the button hunt to likely banner containers
// before falling back to any button on the page.
var consentSelectors = []string{
	"[id*='cookie'] button, [class*='cookie'] button",
	"[id*='consent'] button, [class*='consent'] button",
	"[id*='gdpr'] button, [class*='gdpr'] button",
	"button",
}

// removalScript drops banner containers outright. Last resort after
// clicking and keyboard dismissal both failed.
const removalScript = `(() => {
  let removed = 0;
  document.querySelectorAll("[id*='cookie'], [class*='cookie'], [id*='consent'], [class*='consent'], [id*='gdpr'], [class*='gdpr']")
    .forEach(el => {
      const style = window.getComputedStyle(el);
      if (style.position === 'fixed' || style.position === 'sticky' || el.tagName === 'DIALOG') {
        el.remove();
        removed++;
      }
    });
  document.body.style.overflow = 'auto';
  return removed;
})()`

// Handler scans sessions for blocking screens and clears what it can.
type Handler struct{}

// NewHandler creates a Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Check scans the current page. It returns (nil, nil) when the page is
// accessible, possibly after dismissing a consent banner. A remaining
// blocking screen comes back as a Challenge for the caller to resolve or
// give up on; consent dismissal is attempted here, bot-check and CAPTCHA
// extraction is not.
func (h *Handler) Check(ctx context.Context, sess browser.Session) (*Challenge, error) {
	content, err := sess.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}

	// Bot walls win over consent banners: dismissing a banner on a block
	// page accomplishes nothing.
	if ch := h.detectBot(content); ch != nil {
		return ch, nil
	}

	if !containsAny(content, consentKeywords) {
		return nil, nil
	}

	logger.Debug("Consent banner detected", logger.Fields{"session": sess.ID()})
	content, err = h.dismissConsent(ctx, sess)
	if err != nil {
		return nil, err
	}

	if ch := h.detectBot(content); ch != nil {
		return ch, nil
	}
	if containsAny(content, consentKeywords) {
		return &Challenge{Kind: KindConsent}, nil
	}
	return nil, nil
}

func (h *Handler) detectBot(content string) *Challenge {
	if ch := captcha.Detect(content, ""); ch != nil {
		return &Challenge{Kind: KindCaptcha, Captcha: ch}
	}
	if containsAny(content, botKeywords) {
		return &Challenge{Kind: KindBotCheck}
	}
	return nil
}

// dismissConsent walks the strategy chain, re-reading the page after each
// attempt and stopping at the first one that clears the banner.
func (h *Handler) dismissConsent(ctx context.Context, sess browser.Session) (string, error) {
	strategies := []struct {
		name string
		run  func(context.Context, browser.Session) error
	}{
		{"click-affirmative", h.clickAffirmative},
		{"keyboard-dismiss", h.keyboardDismiss},
		{"remove-nodes", h.removeNodes},
	}

	var content string
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if err := s.run(ctx, sess); err != nil {
			logger.Debug("Consent strategy failed", logger.Fields{
				"strategy": s.name,
				"error":    err.Error(),
			})
			continue
		}

		var err error
		content, err = sess.Content(ctx)
		if err != nil {
			return "", fmt.Errorf("re-reading page: %w", err)
		}
		if !containsAny(content, consentKeywords) {
			logger.IncrCounter("challenge.consent." + s.name)
			return content, nil
		}
	}

	if content == "" {
		var err error
		content, err = sess.Content(ctx)
		if err != nil {
			return "", fmt.Errorf("re-reading page: %w", err)
		}
	}
	return content, nil
}

// clickAffirmative finds the most consent-specific button whose text is in
// the affirmative allow-list and clicks it.
func (h *Handler) clickAffirmative(ctx context.Context, sess browser.Session) error {
	content, err := sess.Content(ctx)
	if err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("parsing page: %w", err)
	}

	for _, selector := range consentSelectors {
		var clickErr error
		found := false

		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if _, disabled := sel.Attr("disabled"); disabled {
				return true
			}
			text := strings.ToLower(strings.TrimSpace(sel.Text()))
			for _, word := range affirmativeWords {
				if text == word || strings.HasPrefix(text, word+" ") {
					found = true
					clickErr = h.clickByText(ctx, sess, text)
					return false
				}
			}
			return true
		})

		if found {
			return clickErr
		}
	}

	return fmt.Errorf("no affirmative button found")
}

// clickByText clicks the first visible button whose text matches. Goes
// through script evaluation because CSS alone cannot select on text.
func (h *Handler) clickByText(ctx context.Context, sess browser.Session, text string) error {
	script := fmt.Sprintf(`(() => {
  const want = %q;
  const buttons = document.querySelectorAll('button, [role="button"], input[type="button"], input[type="submit"]');
  for (const b of buttons) {
    const t = (b.innerText || b.value || '').trim().toLowerCase();
    if (t === want || t.startsWith(want + ' ')) {
      if (b.offsetParent !== null && !b.disabled) {
        b.click();
        return true;
      }
    }
  }
  return false;
})()`, text)

	res, err := sess.Evaluate(ctx, script)
	if err != nil {
		return err
	}
	if res != "true" {
		return fmt.Errorf("button %q not clickable", text)
	}
	return nil
}

func (h *Handler) keyboardDismiss(ctx context.Context, sess browser.Session) error {
	if err := sess.Press(ctx, browser.KeyEscape); err != nil {
		return err
	}
	return sess.Press(ctx, browser.KeyTab, browser.KeyEnter)
}

func (h *Handler) removeNodes(ctx context.Context, sess browser.Session) error {
	_, err := sess.Evaluate(ctx, removalScript)
	return err
}

func containsAny(content string, keywords []string) bool {
	lower := strings.ToLower(content)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
