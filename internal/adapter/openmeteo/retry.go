package openmeteo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps an error so RetryPolicy.Do gives up immediately instead of
// retrying. Used for client-side failures like 4xx responses and malformed
// payloads, where repeating the request cannot help.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryPolicy retries a request function on transient failure with a fixed
// inter-attempt delay. MaxAttempts is the total attempt count, not the retry
// count. The delay is slept on the injected clock so tests can run without
// real waiting.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration

	clock clockwork.Clock
}

// NewRetryPolicy creates a policy with the real clock.
func NewRetryPolicy(maxAttempts int, delay time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Delay:       delay,
		clock:       clockwork.NewRealClock(),
	}
}

// WithClock returns a copy of the policy using the given clock.
func (p RetryPolicy) WithClock(c clockwork.Clock) RetryPolicy {
	p.clock = c
	return p
}

// Do invokes fn until it succeeds, returns a permanent error, the attempts
// are exhausted, or the context is cancelled. The last error is returned
// wrapped with the attempt count.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if !p.sleep(ctx) {
			return ctx.Err()
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// sleep waits for the inter-attempt delay, returning false if the context
// was cancelled first.
func (p RetryPolicy) sleep(ctx context.Context) bool {
	if p.Delay <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-p.clock.After(p.Delay):
		return true
	}
}
