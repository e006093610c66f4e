package captcha

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollUntilSucceeds(t *testing.T) {
	calls := 0
	err := PollUntil(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestPollUntilTimesOut(t *testing.T) {
	err := PollUntil(context.Background(), time.Millisecond, 20*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
}

func TestPollUntilPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	err := PollUntil(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
}

func TestPollUntilHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- PollUntil(ctx, 5*time.Millisecond, time.Minute, func(context.Context) (bool, error) {
			calls++
			return false, nil
		})
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("PollUntil did not return after cancellation")
	}

	if calls == 0 {
		t.Error("expected at least one poll before cancellation")
	}
}
