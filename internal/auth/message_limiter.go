package auth

import (
	"sync"
	"time"
)

// MessageLimiter counts inbound messages per key over a sliding window.
// Callers use one key per push connection.
type MessageLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

// NewMessageLimiter returns a limiter allowing limit messages per window.
// limit <= 0 disables it.
func NewMessageLimiter(limit int, window time.Duration) *MessageLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &MessageLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records one message for key. It returns a *RateLimitError when the
// window is already full; rejected messages are not counted.
func (ml *MessageLimiter) Allow(key string) error {
	if ml == nil || ml.limit <= 0 {
		return nil
	}
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := ml.now()
	valid := pruneBefore(ml.hits[key], now.Add(-ml.window))
	if len(valid) >= ml.limit {
		ml.hits[key] = valid
		return &RateLimitError{Key: key, Limit: LimitMessageRate, Current: len(valid), Max: ml.limit}
	}
	ml.hits[key] = append(valid, now)
	return nil
}

// Remove forgets key.
func (ml *MessageLimiter) Remove(key string) {
	if ml == nil {
		return
	}
	ml.mu.Lock()
	delete(ml.hits, key)
	ml.mu.Unlock()
}
