package captcha

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nordgren/eventscout/internal/browser/browsertest"
)

const challengedPage = `<html><body><div class="g-recaptcha" data-sitekey="6LcA-key"></div></body></html>`
const clearedPage = `<html><body><h1>Events this week</h1></body></html>`

// fakeProvider scripts one provider in the chain.
type fakeProvider struct {
	name       string
	token      string
	submitErr  error
	pollRounds int

	submits int
	polls   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Submit(context.Context, *Challenge) (string, error) {
	f.submits++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "task-" + f.name, nil
}

func (f *fakeProvider) Poll(context.Context, string) (string, bool, error) {
	f.polls++
	if f.polls <= f.pollRounds {
		return "", false, nil
	}
	return f.token, true, nil
}

// challengedSession returns a fake whose page flips to cleared once a
// token injection script runs.
func challengedSession() *browsertest.FakeSession {
	s := browsertest.New()
	s.Page = challengedPage
	s.EvaluateFn = func(expr string) (string, error) {
		if strings.Contains(expr, "dispatchEvent") {
			s.Page = clearedPage
		}
		return "true", nil
	}
	return s
}

func quickResolver(providers ...Provider) *Resolver {
	r := NewResolver(providers)
	r.interval = time.Millisecond
	r.timeout = 50 * time.Millisecond
	r.settle = time.Millisecond
	return r
}

func TestResolveFirstProviderWins(t *testing.T) {
	first := &fakeProvider{name: "primary", token: "tok-1", pollRounds: 2}
	second := &fakeProvider{name: "fallback", token: "tok-2"}

	r := quickResolver(first, second)
	sess := challengedSession()
	ch := Detect(challengedPage, "https://example.com")

	res, err := r.Resolve(context.Background(), sess, ch)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if res.Outcome != Solved {
		t.Fatalf("outcome = %s, want solved", res.Outcome)
	}
	if res.Provider != "primary" || res.Token != "tok-1" {
		t.Errorf("result = %+v, want primary/tok-1", res)
	}
	if second.submits != 0 {
		t.Error("fallback provider should not be tried after primary succeeds")
	}
	if first.polls != 3 {
		t.Errorf("expected 3 polls (2 pending + ready), got %d", first.polls)
	}
}

func TestResolveFallsThroughProviderChain(t *testing.T) {
	first := &fakeProvider{name: "primary", submitErr: errors.New("out of credit")}
	second := &fakeProvider{name: "fallback", token: "tok-2"}

	r := quickResolver(first, second)
	sess := challengedSession()
	ch := Detect(challengedPage, "https://example.com")

	res, err := r.Resolve(context.Background(), sess, ch)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if res.Outcome != Solved || res.Provider != "fallback" {
		t.Errorf("result = %+v, want fallback solve", res)
	}
	if first.submits != 1 {
		t.Errorf("primary should have been tried once, got %d", first.submits)
	}
}

func TestResolveBypassOnlyAfterAllProvidersFail(t *testing.T) {
	first := &fakeProvider{name: "primary", submitErr: errors.New("down")}
	second := &fakeProvider{name: "fallback", submitErr: errors.New("down")}

	r := quickResolver(first, second)
	sess := challengedSession()
	ch := Detect(challengedPage, "https://example.com")

	res, err := r.Resolve(context.Background(), sess, ch)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if res.Outcome != Bypassed {
		t.Fatalf("outcome = %s, want bypassed", res.Outcome)
	}
	if first.submits != 1 || second.submits != 1 {
		t.Error("both providers should have been tried before the bypass")
	}
}

func TestResolveFailedWhenChallengePersists(t *testing.T) {
	r := quickResolver(&fakeProvider{name: "primary", submitErr: errors.New("down")})

	sess := browsertest.New()
	sess.Page = challengedPage // never clears

	ch := Detect(challengedPage, "https://example.com")

	res, err := r.Resolve(context.Background(), sess, ch)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Outcome != Failed {
		t.Fatalf("outcome = %s, want failed", res.Outcome)
	}

	// The session must still carry the challenge for the caller.
	content, _ := sess.Content(context.Background())
	if Detect(content, "https://example.com") == nil {
		t.Error("failed resolve should leave the challenge detectable")
	}
}

func TestResolveCancellation(t *testing.T) {
	slow := &fakeProvider{name: "slow", pollRounds: 1 << 30}

	r := quickResolver(slow)
	r.timeout = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := r.Resolve(ctx, challengedSession(), Detect(challengedPage, "https://example.com"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
