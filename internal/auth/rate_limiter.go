package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pkgLog "logstream-srv/pkg/log"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// MaxConnectionsPerUser is the maximum number of concurrent connections per user
	MaxConnectionsPerUser int

	// ConnectionRateLimit is the maximum new connections per user per window
	ConnectionRateLimit int

	// MessageRateLimit is the maximum inbound messages per connection per window
	MessageRateLimit int

	// RateLimitWindow is the sliding window used by both rate limits
	RateLimitWindow time.Duration
}

// DefaultRateLimitConfig returns default rate limiting configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxConnectionsPerUser: 10,
		ConnectionRateLimit:   20,
		MessageRateLimit:      120,
		RateLimitWindow:       time.Minute,
	}
}

const (
	LimitMaxConnectionsPerUser = "max_connections_per_user"
	LimitConnectionRate        = "connection_rate_limit"
	LimitMessageRate           = "message_rate_limit"
)

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Key     string
	Limit   string
	Current int
	Max     int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: %s (current: %d, max: %d)", e.Key, e.Limit, e.Current, e.Max)
}

// IsRateLimitError checks if an error is a RateLimitError
func IsRateLimitError(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// ConnectionTracker enforces the per-user concurrent connection cap and
// the per-user connect rate.
type ConnectionTracker struct {
	userConnections      map[string]int
	connectionTimestamps map[string][]time.Time

	mu     sync.Mutex
	config RateLimitConfig
	l      pkgLog.Logger
	now    func() time.Time
}

// NewConnectionTracker creates a new ConnectionTracker
func NewConnectionTracker(config RateLimitConfig, l pkgLog.Logger) *ConnectionTracker {
	return &ConnectionTracker{
		userConnections:      make(map[string]int),
		connectionTimestamps: make(map[string][]time.Time),
		config:               config,
		l:                    l,
		now:                  time.Now,
	}
}

// Acquire checks the limits for userID and, when they pass, counts one more
// live connection. Every successful Acquire must be paired with Release.
func (ct *ConnectionTracker) Acquire(ctx context.Context, userID string) error {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if max := ct.config.MaxConnectionsPerUser; max > 0 {
		if cur := ct.userConnections[userID]; cur >= max {
			return &RateLimitError{Key: userID, Limit: LimitMaxConnectionsPerUser, Current: cur, Max: max}
		}
	}

	if err := ct.checkRateLimitLocked(userID); err != nil {
		ct.l.Warnf(ctx, "internal.auth.ConnectionTracker.Acquire: connect rate exceeded for user %s", userID)
		return err
	}

	ct.userConnections[userID]++
	return nil
}

// checkRateLimitLocked must be called with the lock held
func (ct *ConnectionTracker) checkRateLimitLocked(userID string) error {
	if ct.config.ConnectionRateLimit <= 0 {
		return nil
	}
	now := ct.now()
	valid := pruneBefore(ct.connectionTimestamps[userID], now.Add(-ct.config.RateLimitWindow))

	if len(valid) >= ct.config.ConnectionRateLimit {
		ct.connectionTimestamps[userID] = valid
		return &RateLimitError{Key: userID, Limit: LimitConnectionRate, Current: len(valid), Max: ct.config.ConnectionRateLimit}
	}

	ct.connectionTimestamps[userID] = append(valid, now)
	return nil
}

// Release removes tracking for a closed connection
func (ct *ConnectionTracker) Release(userID string) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.userConnections[userID] > 0 {
		ct.userConnections[userID]--
		if ct.userConnections[userID] == 0 {
			delete(ct.userConnections, userID)
		}
	}
}

// Cleanup drops connect timestamps that fell out of the window.
func (ct *ConnectionTracker) Cleanup() {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	windowStart := ct.now().Add(-ct.config.RateLimitWindow)
	for userID, timestamps := range ct.connectionTimestamps {
		valid := pruneBefore(timestamps, windowStart)
		if len(valid) == 0 {
			delete(ct.connectionTimestamps, userID)
		} else {
			ct.connectionTimestamps[userID] = valid
		}
	}
}

// GetStats returns connection tracking statistics
func (ct *ConnectionTracker) GetStats() ConnectionTrackerStats {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	total := 0
	for _, count := range ct.userConnections {
		total += count
	}
	return ConnectionTrackerStats{
		TotalUsers:       len(ct.userConnections),
		TotalConnections: total,
		RateWindowUsers:  len(ct.connectionTimestamps),
	}
}

// ConnectionTrackerStats holds connection tracking statistics
// RateWindowUsers counts users with connect timestamps still held for the
// rate window.
type ConnectionTrackerStats struct {
	TotalUsers       int `json:"total_users"`
	TotalConnections int `json:"total_connections"`
	RateWindowUsers  int `json:"rate_window_users"`
}

func pruneBefore(ts []time.Time, windowStart time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(windowStart) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0:0], ts[i:]...)
}
