package browser

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/nordgren/eventscout/internal/fingerprint"
	"github.com/nordgren/eventscout/internal/logger"
)

// Engine constructs sessions for one automation backend.
type Engine struct {
	Name string
	New  func(ctx context.Context, profile *fingerprint.Profile) (Session, error)
}

// Delays configures the humanized timing applied around navigation.
type Delays struct {
	PreMin  time.Duration
	PreMax  time.Duration
	PostMin time.Duration
	PostMax time.Duration
}

// DefaultDelays mirrors organic click-through pacing.
var DefaultDelays = Delays{
	PreMin:  500 * time.Millisecond,
	PreMax:  2 * time.Second,
	PostMin: 300 * time.Millisecond,
	PostMax: 1200 * time.Millisecond,
}

// Manager creates and destroys sessions using the best available engine.
type Manager struct {
	engines []Engine
	delays  Delays
	rng     *rand.Rand
}

// NewManager creates a Manager over an ordered engine preference list,
// most stealthy first.
func NewManager(engines []Engine, rng *rand.Rand) *Manager {
	return &Manager{engines: engines, delays: DefaultDelays, rng: rng}
}

// DefaultEngines returns the full preference order: rod with stealth
// patches, playwright, chromedp, and the scriptless HTTP fallback.
func DefaultEngines() []Engine {
	return []Engine{
		{Name: "rod-stealth", New: newRodSession},
		{Name: "playwright", New: newPlaywrightSession},
		{Name: "chromedp", New: newChromedpSession},
		{Name: "http", New: newHTTPSession},
	}
}

// EnginesByName filters DefaultEngines down to the named engines, keeping
// the given order. Unknown names are rejected.
func EnginesByName(names []string) ([]Engine, error) {
	all := DefaultEngines()
	byName := make(map[string]Engine, len(all))
	for _, e := range all {
		byName[e.Name] = e
	}

	out := make([]Engine, 0, len(names))
	for _, n := range names {
		e, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown engine %q", n)
		}
		out = append(out, e)
	}
	return out, nil
}

// SetDelays overrides the humanized pacing, mainly for configuration
// tuning. A zero value disables the artificial delays.
func (m *Manager) SetDelays(d Delays) {
	m.delays = d
}

// Rand exposes the manager's random source so collaborators (profile
// rotation, recovery jitter) share one stream.
func (m *Manager) Rand() *rand.Rand {
	return m.rng
}

// Create opens a session on the first engine that initializes. A nil
// profile gets a freshly generated one. If every engine fails the error
// wraps ErrEngineUnavailable together with each engine's cause.
func (m *Manager) Create(ctx context.Context, profile *fingerprint.Profile) (Session, error) {
	if profile == nil {
		profile = fingerprint.Generate(m.rng)
	}

	var causes []string
	for _, engine := range m.engines {
		s, err := engine.New(ctx, profile)
		if err != nil {
			logger.Warn("Engine failed to initialize", logger.Fields{
				"engine": engine.Name,
				"error":  err.Error(),
			})
			causes = append(causes, fmt.Sprintf("%s: %v", engine.Name, err))
			continue
		}

		logger.Info("Session created", logger.Fields{
			"session": s.ID(),
			"engine":  engine.Name,
		})
		logger.IncrCounter("browser.sessions." + engine.Name)
		return s, nil
	}

	return nil, fmt.Errorf("%w (%s)", ErrEngineUnavailable, strings.Join(causes, "; "))
}

// Navigate performs a humanized page load: a randomized pre-navigation
// delay, the load itself, a randomized settle delay, then a randomized
// scroll so the timing and interaction pattern differ between requests.
// It returns the loaded page content.
func (m *Manager) Navigate(ctx context.Context, s Session, url string, timeout time.Duration) (string, error) {
	if err := m.sleep(ctx, m.jitter(m.delays.PreMin, m.delays.PreMax)); err != nil {
		return "", err
	}

	start := time.Now()
	if err := s.Navigate(ctx, url, timeout); err != nil {
		return "", err
	}
	logger.RecordTiming("browser.navigate", time.Since(start))

	if err := m.sleep(ctx, m.jitter(m.delays.PostMin, m.delays.PostMax)); err != nil {
		return "", err
	}

	m.humanize(ctx, s)

	return s.Content(ctx)
}

// Close shuts a session down, logging rather than failing on cleanup
// errors.
func (m *Manager) Close(s Session) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		logger.Warn("Session close failed", logger.Fields{
			"session": s.ID(),
			"error":   err.Error(),
		})
	}
}

// humanize scrolls a random distance and wiggles back, ignoring failures:
// the HTTP engine cannot script, and a page without a body is not worth
// aborting over.
func (m *Manager) humanize(ctx context.Context, s Session) {
	down := 200 + m.rng.Intn(600)
	up := m.rng.Intn(down / 2)
	script := fmt.Sprintf(
		"(() => { window.scrollBy(0, %d); setTimeout(() => window.scrollBy(0, -%d), %d); return true; })()",
		down, up, 50+m.rng.Intn(200),
	)
	if _, err := s.Evaluate(ctx, script); err != nil && err != ErrUnsupported {
		logger.Debug("Humanize scroll failed", logger.Fields{
			"session": s.ID(),
			"error":   err.Error(),
		})
	}
}

func (m *Manager) jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(m.rng.Int63n(int64(max-min)))
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
