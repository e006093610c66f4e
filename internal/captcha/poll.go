package captcha

import (
	"context"
	"fmt"
	"time"
)

// ErrPollTimeout is returned by PollUntil when the condition did not come
// true within the bound.
var ErrPollTimeout = fmt.Errorf("poll timed out")

// PollUntil calls fn every interval until it reports done, returns an
// error, the overall timeout lapses, or ctx is canceled. fn runs once
// immediately before the first wait.
func PollUntil(ctx context.Context, interval, timeout time.Duration, fn func(context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return ErrPollTimeout
			}
			return ctx.Err()
		}
	}
}
