package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff returns the delay to wait before the given attempt (0-based).
type Backoff func(attempt int) time.Duration

// Constant waits d between every attempt.
func Constant(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Exponential describes min(Max, Base*2^attempt) reduced by up to Jitter
// (a fraction in [0,1]) of itself. The jittered value never exceeds Max.
type Exponential struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64

	// Rand returns a value in [0,1). Defaults to math/rand/v2.
	Rand func() float64
}

// Delay computes the wait before attempt.
func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := e.Max
	// Stop doubling once Max is reached so large attempts cannot overflow.
	if attempt < 62 {
		if step := e.Base << uint(attempt); step > 0 && step < e.Max {
			d = step
		}
	}
	if e.Jitter > 0 {
		rnd := e.Rand
		if rnd == nil {
			rnd = rand.Float64
		}
		d -= time.Duration(float64(d) * e.Jitter * rnd())
	}
	return d
}

// Backoff adapts e to the Backoff func type.
func (e Exponential) Backoff() Backoff {
	return e.Delay
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
