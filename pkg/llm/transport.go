package llm

import (
	"context"
	"errors"
	"time"
)

// RateLimitError is returned by a provider's single-attempt call when the
// transport observes HTTP 429 or a provider-typed rate-limit response. The
// optional RetryAfter duration, when present, overrides the default backoff.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "llm: rate limited"
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// isRetryable reports whether err is a rate-limit condition; every other
// transport error propagates immediately.
func isRetryable(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// maxRateLimitAttempts bounds the transport's internal retry loop.
const maxRateLimitAttempts = 3

// callWithRetry runs call, retrying up to maxRateLimitAttempts times on a
// RateLimitError with a 5s*(attempt+1) backoff (or the error's own
// RetryAfter duration when present); any other error propagates on its
// first occurrence without spending the remaining attempts.
func callWithRetry(ctx context.Context, call func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= maxRateLimitAttempts; attempt++ {
		resp, err := call(ctx)
		if err == nil {
			return resp, nil
		}
		if !isRetryable(err) {
			return "", err
		}
		lastErr = err

		if attempt == maxRateLimitAttempts {
			break
		}

		var rl *RateLimitError
		errors.As(err, &rl)
		wait := 5 * time.Second * time.Duration(attempt+1)
		if rl != nil && rl.RetryAfter > 0 {
			wait = rl.RetryAfter
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}

	return "", lastErr
}
