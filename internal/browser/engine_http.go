package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nordgren/eventscout/internal/fingerprint"
)

// httpSession is the scriptless last-resort engine: a plain HTTP client
// carrying the profile's identity headers and a cookie jar. Sources that
// render server-side need nothing more, and it costs no browser process.
type httpSession struct {
	id      string
	profile *fingerprint.Profile
	client  *http.Client

	mu      sync.Mutex
	content string
	closed  bool
}

func newHTTPSession(_ context.Context, profile *fingerprint.Profile) (Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	return &httpSession{
		id:      uuid.NewString(),
		profile: profile,
		client:  &http.Client{Jar: jar},
	}, nil
}

func (s *httpSession) ID() string                    { return s.id }
func (s *httpSession) Engine() string                { return "http" }
func (s *httpSession) Profile() *fingerprint.Profile { return s.profile }

func (s *httpSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return navError(url, err)
	}
	req.Header.Set("User-Agent", s.profile.UserAgent)
	req.Header.Set("Accept-Language", strings.Join(s.profile.Languages, ","))
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return navError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return navError(url, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return navError(url, err)
	}

	s.mu.Lock()
	s.content = string(body)
	s.mu.Unlock()
	return nil
}

func (s *httpSession) Content(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content, nil
}

func (s *httpSession) Evaluate(context.Context, string) (string, error) {
	return "", ErrUnsupported
}

func (s *httpSession) Click(context.Context, string) error {
	return ErrUnsupported
}

func (s *httpSession) Press(context.Context, ...Key) error {
	return ErrUnsupported
}

func (s *httpSession) Screenshot(context.Context) ([]byte, error) {
	return nil, ErrUnsupported
}

func (s *httpSession) ClearCookies(context.Context) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("resetting cookie jar: %w", err)
	}
	s.client.Jar = jar
	return nil
}

func (s *httpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.client.CloseIdleConnections()
	return nil
}
