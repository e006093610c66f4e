package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nordgren/eventscout/internal/browser"
	"github.com/nordgren/eventscout/internal/captcha"
	"github.com/nordgren/eventscout/internal/challenge"
	"github.com/nordgren/eventscout/internal/event"
	"github.com/nordgren/eventscout/internal/logger"
	"github.com/nordgren/eventscout/internal/recovery"
)

// DefaultNavTimeout bounds a single page load.
const DefaultNavTimeout = 30 * time.Second

// Crawler runs the crawl for a set of sources.
type Crawler struct {
	sessions   *browser.Manager
	recovery   *recovery.Manager
	challenges *challenge.Handler
	captchas   *captcha.Resolver
	navTimeout time.Duration
}

// New creates a Crawler. The captcha resolver may be nil when no solving
// provider is configured; CAPTCHA walls then count as unresolved.
func New(sessions *browser.Manager, rec *recovery.Manager, captchas *captcha.Resolver) *Crawler {
	return &Crawler{
		sessions:   sessions,
		recovery:   rec,
		challenges: challenge.NewHandler(),
		captchas:   captchas,
		navTimeout: DefaultNavTimeout,
	}
}

// SetNavTimeout overrides the per-page-load bound.
func (c *Crawler) SetNavTimeout(d time.Duration) {
	if d > 0 {
		c.navTimeout = d
	}
}

// SourceResult is the outcome of crawling one source.
type SourceResult struct {
	Source     string
	Candidates int
	Err        error
}

// Crawl visits every source and returns the combined candidates together
// with per-source outcomes. A failed source is reported and skipped; it
// never aborts the run. Only context cancellation stops the crawl early.
func (c *Crawler) Crawl(ctx context.Context, sources []Source) ([]*event.Candidate, []SourceResult) {
	var all []*event.Candidate
	results := make([]SourceResult, 0, len(sources))

	for _, src := range sources {
		if ctx.Err() != nil {
			results = append(results, SourceResult{Source: src.Name(), Err: ctx.Err()})
			continue
		}

		candidates, err := c.crawlSource(ctx, src)
		res := SourceResult{Source: src.Name(), Candidates: len(candidates), Err: err}
		results = append(results, res)

		if err != nil {
			logger.Warn("Source crawl failed", logger.Fields{
				"source": src.Name(),
				"error":  err.Error(),
			})
			logger.IncrCounter("crawler.sources.failed")
			continue
		}

		logger.Info("Source crawled", logger.Fields{
			"source":     src.Name(),
			"candidates": len(candidates),
		})
		logger.IncrCounter("crawler.sources.ok")
		all = append(all, candidates...)
	}

	return all, results
}

func (c *Crawler) crawlSource(ctx context.Context, src Source) ([]*event.Candidate, error) {
	sess, err := c.sessions.Create(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("opening session for %s: %w", src.Name(), err)
	}
	defer func() { c.sessions.Close(sess) }()

	start := time.Now()
	content, err := c.loadClean(ctx, &sess, src)
	if err != nil {
		return nil, err
	}
	logger.RecordTiming("crawler.source", time.Since(start))

	candidates, err := src.Parse(content)
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// loadClean navigates to the source and keeps working until the page is
// free of blocking screens, feeding navigation failures and unresolved
// challenges through the recovery chain. Recovery exhaustion surfaces the
// last failure and the source is skipped.
func (c *Crawler) loadClean(ctx context.Context, sess *browser.Session, src Source) (string, error) {
	attempt := 0
	for {
		if _, err := c.sessions.Navigate(ctx, *sess, src.URL(), c.navTimeout); err != nil {
			var navErr *browser.NavigationError
			if !errors.As(err, &navErr) {
				return "", err
			}
			if err = c.remediate(ctx, sess, err, &attempt); err != nil {
				return "", err
			}
			continue
		}

		ch, err := c.challenges.Check(ctx, *sess)
		if err != nil {
			return "", err
		}
		if ch == nil {
			// Consent dismissal mutates the page, so read it fresh.
			return (*sess).Content(ctx)
		}

		logger.Info("Challenge encountered", logger.Fields{
			"source":    src.Name(),
			"challenge": ch.String(),
		})
		logger.IncrCounter("crawler.challenges." + string(ch.Kind))

		if ch.Kind == challenge.KindCaptcha && c.captchas != nil {
			ch.Captcha.PageURL = src.URL()
			res, err := c.captchas.Resolve(ctx, *sess, ch.Captcha)
			if err != nil {
				return "", err
			}
			if res.Outcome != captcha.Failed {
				return (*sess).Content(ctx)
			}
		}

		cause := fmt.Errorf("%s on %s: %w", ch, src.Name(), challenge.ErrUnresolved)
		if err := c.remediate(ctx, sess, cause, &attempt); err != nil {
			return "", err
		}
	}
}

// remediate runs one recovery attempt, replacing the session in place.
// It returns the original cause once the chain is exhausted.
func (c *Crawler) remediate(ctx context.Context, sess *browser.Session, cause error, attempt *int) error {
	next, err := c.recovery.Recover(ctx, *sess, cause, *attempt)
	*sess = next
	(*attempt)++
	return err
}
