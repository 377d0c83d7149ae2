package retry

import (
	"context"
	"errors"
	"fmt"
)

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Policy retries a function up to Attempts times.
type Policy struct {
	Attempts int
	Backoff  Backoff
}

// Do runs fn until it succeeds, returns a permanent error, the attempts are
// exhausted or ctx is cancelled.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && p.Backoff != nil {
			if err := Sleep(ctx, p.Backoff(attempt-1)); err != nil {
				return fmt.Errorf("retry cancelled after %d attempts: %w", attempt, lastErr)
			}
		}
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if IsPermanent(err) {
			return err
		}
	}
	return fmt.Errorf("failed after %d attempts, last error: %w", attempts, lastErr)
}
