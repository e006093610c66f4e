package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nordgren/eventscout/internal/browser"
	"github.com/nordgren/eventscout/internal/fingerprint"
	"github.com/nordgren/eventscout/internal/logger"
)

// Strategy is one remediation technique. Apply returns the session to
// retry with, which may be the same session or a replacement.
type Strategy struct {
	Name  string
	Apply func(ctx context.Context, sess browser.Session) (browser.Session, error)
}

// Manager walks the remediation chain, one strategy per attempt.
type Manager struct {
	sessions   *browser.Manager
	strategies []Strategy

	initialInterval time.Duration
	maxInterval     time.Duration
	randomization   float64

	delayMin time.Duration
	delayMax time.Duration
}

// NewManager creates a Manager with the default strategy order: restart
// session, clear cookies/cache, rotate fingerprint profile, rotate user
// agent, randomized delay.
func NewManager(sessions *browser.Manager) *Manager {
	m := &Manager{
		sessions:        sessions,
		initialInterval: time.Second,
		maxInterval:     30 * time.Second,
		randomization:   0.5,
		delayMin:        2 * time.Second,
		delayMax:        10 * time.Second,
	}
	m.strategies = []Strategy{
		{Name: "restart-session", Apply: m.restartSession},
		{Name: "clear-state", Apply: m.clearState},
		{Name: "rotate-profile", Apply: m.rotateProfile},
		{Name: "rotate-user-agent", Apply: m.rotateUserAgent},
		{Name: "randomized-delay", Apply: m.randomizedDelay},
	}
	return m
}

// SetBackoff tunes the pre-remediation backoff schedule.
func (m *Manager) SetBackoff(initial, max time.Duration) {
	m.initialInterval = initial
	m.maxInterval = max
}

// SetDelayRange tunes the randomized-delay strategy's sleep bounds.
func (m *Manager) SetDelayRange(min, max time.Duration) {
	m.delayMin = min
	m.delayMax = max
}

// Attempts returns how many recovery attempts are available.
func (m *Manager) Attempts() int {
	return len(m.strategies)
}

// Recover applies the strategy for the given attempt index after an
// exponential backoff with jitter, then returns the session the caller
// should retry with. When attempt is past the end of the chain, the
// original cause comes back and the caller must treat the failure as
// fatal for this session.
func (m *Manager) Recover(ctx context.Context, sess browser.Session, cause error, attempt int) (browser.Session, error) {
	if attempt >= len(m.strategies) {
		logger.Warn("Recovery exhausted", logger.Fields{
			"attempts": attempt,
			"error":    cause.Error(),
		})
		return sess, cause
	}

	if err := m.wait(ctx, attempt); err != nil {
		return sess, err
	}

	s := m.strategies[attempt]
	logger.Info("Applying recovery strategy", logger.Fields{
		"strategy": s.Name,
		"attempt":  attempt,
		"cause":    cause.Error(),
	})
	logger.IncrCounter("recovery." + s.Name)

	next, err := s.Apply(ctx, sess)
	if err != nil {
		// A strategy that cannot even apply is skipped; the original
		// failure stays the caller's problem on the next attempt.
		logger.Warn("Recovery strategy failed", logger.Fields{
			"strategy": s.Name,
			"error":    err.Error(),
		})
		return sess, nil
	}
	return next, nil
}

// wait sleeps the backoff delay for the attempt, honoring cancellation.
func (m *Manager) wait(ctx context.Context, attempt int) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.initialInterval
	b.MaxInterval = m.maxInterval
	b.RandomizationFactor = m.randomization
	b.Reset()

	delay := b.NextBackOff()
	for i := 0; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	if delay == backoff.Stop {
		delay = m.maxInterval
	}

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) restartSession(ctx context.Context, sess browser.Session) (browser.Session, error) {
	profile := sess.Profile()
	m.sessions.Close(sess)

	next, err := m.sessions.Create(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("restarting session: %w", err)
	}
	return next, nil
}

func (m *Manager) clearState(ctx context.Context, sess browser.Session) (browser.Session, error) {
	if err := sess.ClearCookies(ctx); err != nil {
		return nil, fmt.Errorf("clearing session state: %w", err)
	}
	return sess, nil
}

func (m *Manager) rotateProfile(ctx context.Context, sess browser.Session) (browser.Session, error) {
	profile := fingerprint.GenerateExcluding(m.sessions.Rand(), sess.Profile())
	m.sessions.Close(sess)

	next, err := m.sessions.Create(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("rotating profile: %w", err)
	}
	return next, nil
}

// rotateUserAgent swaps in a profile with a different user agent but the
// same platform family, a lighter identity change than a full profile
// rotation.
func (m *Manager) rotateUserAgent(ctx context.Context, sess browser.Session) (browser.Session, error) {
	current := sess.Profile()
	rng := m.sessions.Rand()

	profile := fingerprint.GenerateExcluding(rng, current)
	for i := 0; i < 10; i++ {
		if profile.Platform == current.Platform {
			break
		}
		profile = fingerprint.GenerateExcluding(rng, current)
	}

	m.sessions.Close(sess)
	next, err := m.sessions.Create(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("rotating user agent: %w", err)
	}
	return next, nil
}

func (m *Manager) randomizedDelay(ctx context.Context, sess browser.Session) (browser.Session, error) {
	d := m.delayMin + time.Duration(m.sessions.Rand().Int63n(int64(m.delayMax-m.delayMin)))
	select {
	case <-time.After(d):
		return sess, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
