package challenge

import (
	"context"
	"strings"
	"testing"

	"github.com/nordgren/eventscout/internal/browser/browsertest"
	"github.com/nordgren/eventscout/internal/captcha"
)

const cleanPage = `<html><body><h1>Events this week</h1><ul><li>Jazz Night</li></ul></body></html>`

const consentPage = `<html><body>
<div id="cookie-banner">We use cookies to improve your experience.
  <button disabled>Accept all</button>
  <button>Manage preferences</button>
  <button>Accept all</button>
</div>
<h1>Events this week</h1>
</body></html>`

const botPage = `<html><body><h2>Checking your browser before accessing the site.</h2></body></html>`

const captchaPage = `<html><body>
<p>Please verify you are human.</p>
<div class="g-recaptcha" data-sitekey="6LcWall-key"></div>
</body></html>`

func TestCheckAccessiblePage(t *testing.T) {
	sess := browsertest.New()
	sess.Page = cleanPage

	ch, err := NewHandler().Check(context.Background(), sess)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if ch != nil {
		t.Fatalf("clean page flagged as %s", ch)
	}
	if len(sess.EvaluateCalls) != 0 {
		t.Error("no dismissal should run on a clean page")
	}
}

func TestCheckDismissesConsentByClick(t *testing.T) {
	sess := browsertest.New()
	sess.Page = consentPage
	sess.EvaluateFn = func(expr string) (string, error) {
		if strings.Contains(expr, "b.click()") {
			sess.Page = cleanPage
			return "true", nil
		}
		return "0", nil
	}

	ch, err := NewHandler().Check(context.Background(), sess)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if ch != nil {
		t.Fatalf("consent should have been dismissed, got %s", ch)
	}

	if len(sess.EvaluateCalls) != 1 {
		t.Fatalf("expected a single click script, got %d evaluate calls", len(sess.EvaluateCalls))
	}
	if !strings.Contains(sess.EvaluateCalls[0], `"accept all"`) {
		t.Errorf("click script should target the enabled affirmative button: %s", sess.EvaluateCalls[0])
	}
	if len(sess.PressCalls) != 0 {
		t.Error("keyboard strategy should not run when clicking works")
	}
}

func TestCheckFallsBackThroughStrategies(t *testing.T) {
	sess := browsertest.New()
	sess.Page = consentPage
	sess.EvaluateFn = func(expr string) (string, error) {
		if strings.Contains(expr, "b.click()") {
			return "false", nil // click never lands
		}
		// The removal script clears the banner.
		sess.Page = cleanPage
		return "1", nil
	}

	ch, err := NewHandler().Check(context.Background(), sess)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if ch != nil {
		t.Fatalf("removal strategy should have cleared the banner, got %s", ch)
	}

	if len(sess.PressCalls) != 2 {
		t.Errorf("expected Escape then Tab+Enter presses, got %v", sess.PressCalls)
	}
}

func TestCheckResidualConsent(t *testing.T) {
	sess := browsertest.New()
	sess.Page = consentPage
	sess.EvaluateFn = func(string) (string, error) {
		return "false", nil // nothing works
	}

	ch, err := NewHandler().Check(context.Background(), sess)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if ch == nil || ch.Kind != KindConsent {
		t.Fatalf("expected residual consent challenge, got %v", ch)
	}
}

func TestCheckBotWall(t *testing.T) {
	sess := browsertest.New()
	sess.Page = botPage

	ch, err := NewHandler().Check(context.Background(), sess)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if ch == nil || ch.Kind != KindBotCheck {
		t.Fatalf("expected bot-check challenge, got %v", ch)
	}
	if len(sess.EvaluateCalls) != 0 && len(sess.ClickCalls) != 0 {
		t.Error("bot walls must not be dismissed directly")
	}
}

func TestCheckExtractsCaptcha(t *testing.T) {
	sess := browsertest.New()
	sess.Page = captchaPage

	ch, err := NewHandler().Check(context.Background(), sess)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if ch == nil || ch.Kind != KindCaptcha {
		t.Fatalf("expected captcha challenge, got %v", ch)
	}
	if ch.Captcha == nil || ch.Captcha.Type != captcha.TypeRecaptcha || ch.Captcha.SiteKey != "6LcWall-key" {
		t.Errorf("captcha params not extracted: %+v", ch.Captcha)
	}
}
