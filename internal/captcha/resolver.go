package captcha

import (
	"context"
	"fmt"
	"time"

	"github.com/nordgren/eventscout/internal/browser"
	"github.com/nordgren/eventscout/internal/logger"
)

// Outcome is the terminal state of a resolve attempt.
type Outcome int

const (
	// Solved means a provider produced a token and the challenge cleared.
	Solved Outcome = iota
	// Bypassed means the automated heuristic cleared the challenge
	// without a provider.
	Bypassed
	// Failed means every strategy was exhausted and the challenge
	// persists. The session is still usable and still challenge-bearing.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Solved:
		return "solved"
	case Bypassed:
		return "bypassed"
	default:
		return "failed"
	}
}

// Result reports how a challenge ended.
type Result struct {
	Outcome  Outcome
	Token    string
	Provider string
}

// Resolver resolves challenges via an ordered provider chain with a
// heuristic bypass as the last resort.
type Resolver struct {
	providers []Provider
	interval  time.Duration
	timeout   time.Duration
	settle    time.Duration
}

// NewResolver creates a Resolver over providers, tried in the given
// order.
func NewResolver(providers []Provider) *Resolver {
	return &Resolver{
		providers: providers,
		interval:  5 * time.Second,
		timeout:   2 * time.Minute,
		settle:    3 * time.Second,
	}
}

// SetTiming tunes the provider poll interval, the per-provider solve
// timeout, and the post-injection settle delay.
func (r *Resolver) SetTiming(interval, timeout, settle time.Duration) {
	r.interval = interval
	r.timeout = timeout
	r.settle = settle
}

// Resolve works the strategy chain until the challenge clears or every
// strategy has been tried. A context cancellation propagates immediately,
// leaving the page untouched beyond any token already injected; the
// caller can re-detect and hand the session to recovery.
func (r *Resolver) Resolve(ctx context.Context, sess browser.Session, ch *Challenge) (*Result, error) {
	for _, p := range r.providers {
		token, err := r.solveWith(ctx, p, ch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Captcha provider failed", logger.Fields{
				"provider": p.Name(),
				"type":     string(ch.Type),
				"error":    err.Error(),
			})
			continue
		}

		cleared, err := r.injectAndVerify(ctx, sess, ch, token)
		if err != nil {
			return nil, err
		}
		if cleared {
			logger.IncrCounter("captcha.solved." + p.Name())
			return &Result{Outcome: Solved, Token: token, Provider: p.Name()}, nil
		}
	}

	cleared, err := r.bypass(ctx, sess, ch)
	if err != nil {
		return nil, err
	}
	if cleared {
		logger.IncrCounter("captcha.bypassed")
		return &Result{Outcome: Bypassed}, nil
	}

	logger.IncrCounter("captcha.failed")
	return &Result{Outcome: Failed}, nil
}

// solveWith submits the challenge to one provider and polls until a token
// is ready or the bounded timeout lapses.
func (r *Resolver) solveWith(ctx context.Context, p Provider, ch *Challenge) (string, error) {
	taskID, err := p.Submit(ctx, ch)
	if err != nil {
		return "", fmt.Errorf("submitting to %s: %w", p.Name(), err)
	}

	var token string
	err = PollUntil(ctx, r.interval, r.timeout, func(ctx context.Context) (bool, error) {
		t, done, err := p.Poll(ctx, taskID)
		if err != nil {
			return false, err
		}
		token = t
		return done, nil
	})
	if err != nil {
		return "", fmt.Errorf("polling %s: %w", p.Name(), err)
	}
	return token, nil
}

// injectAndVerify writes the token into the page the way the vendor's own
// script would, then waits a settle period and re-detects.
func (r *Resolver) injectAndVerify(ctx context.Context, sess browser.Session, ch *Challenge, token string) (bool, error) {
	script := injectTokenScript(ch, token)
	if _, err := sess.Evaluate(ctx, script); err != nil {
		if err == browser.ErrUnsupported {
			return false, nil
		}
		return false, fmt.Errorf("injecting token: %w", err)
	}

	return r.settleAndRedetect(ctx, sess, ch)
}

// bypass is the no-provider heuristic: hide the widget, inject a synthetic
// token, fire the framework events, and poke any exposed success callback.
func (r *Resolver) bypass(ctx context.Context, sess browser.Session, ch *Challenge) (bool, error) {
	synthetic := fmt.Sprintf("bypass-%d", time.Now().UnixNano())
	script := bypassScript(ch, synthetic)
	if _, err := sess.Evaluate(ctx, script); err != nil {
		if err == browser.ErrUnsupported {
			return false, nil
		}
		return false, fmt.Errorf("running bypass script: %w", err)
	}

	return r.settleAndRedetect(ctx, sess, ch)
}

func (r *Resolver) settleAndRedetect(ctx context.Context, sess browser.Session, ch *Challenge) (bool, error) {
	select {
	case <-time.After(r.settle):
	case <-ctx.Done():
		return false, ctx.Err()
	}

	content, err := sess.Content(ctx)
	if err != nil {
		return false, fmt.Errorf("re-reading page: %w", err)
	}
	return Detect(content, ch.PageURL) == nil, nil
}

// injectTokenScript fills the vendor's hidden response field and
// dispatches the change events a real solution would produce.
func injectTokenScript(ch *Challenge, token string) string {
	return fmt.Sprintf(`(() => {
  const field = %q;
  let el = document.querySelector('textarea[name="' + field + '"], input[name="' + field + '"]');
  if (!el) {
    el = document.createElement('textarea');
    el.name = field;
    el.style.display = 'none';
    (document.forms[0] || document.body).appendChild(el);
  }
  el.value = %q;
  el.dispatchEvent(new Event('input', { bubbles: true }));
  el.dispatchEvent(new Event('change', { bubbles: true }));
  return true;
})()`, ch.responseField(), token)
}

// bypassScript extends token injection with widget hiding and a callback
// probe for the common data-callback wiring.
func bypassScript(ch *Challenge, token string) string {
	return fmt.Sprintf(`(() => {
  const field = %q;
  const token = %q;

  document.querySelectorAll('.g-recaptcha, .h-captcha, .cf-turnstile, iframe[src*="recaptcha"], iframe[src*="hcaptcha"], iframe[src*="turnstile"]')
    .forEach(el => { el.style.display = 'none'; });

  let el = document.querySelector('textarea[name="' + field + '"], input[name="' + field + '"]');
  if (!el) {
    el = document.createElement('textarea');
    el.name = field;
    el.style.display = 'none';
    (document.forms[0] || document.body).appendChild(el);
  }
  el.value = token;
  el.dispatchEvent(new Event('input', { bubbles: true }));
  el.dispatchEvent(new Event('change', { bubbles: true }));

  const widget = document.querySelector('[data-callback]');
  if (widget) {
    const cb = window[widget.getAttribute('data-callback')];
    if (typeof cb === 'function') {
      try { cb(token); } catch (e) {}
    }
  }
  return true;
})()`, ch.responseField(), token)
}
