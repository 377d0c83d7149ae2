package usecase

import (
	"context"
	"time"
)

func (uc *implUseCase) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(uc.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			uc.reap(ctx)
		}
	}
}

// reap drops stale connections and connect-rate entries that left the
// window.
func (uc *implUseCase) reap(ctx context.Context) {
	if n := uc.reapStale(ctx); n > 0 {
		uc.l.Infof(ctx, "internal.websocket.usecase.reap: reaped %d stale connections", n)
	}
	if uc.tracker != nil {
		uc.tracker.Cleanup()
	}
}

// reapStale disconnects every connection silent for longer than the
// heartbeat timeout.
func (uc *implUseCase) reapStale(ctx context.Context) int {
	now := uc.now()

	uc.mu.RLock()
	var stale []*connection
	for _, c := range uc.conns {
		if c.idleSince(now) > uc.cfg.HeartbeatTimeout {
			stale = append(stale, c)
		}
	}
	uc.mu.RUnlock()

	for _, c := range stale {
		uc.l.Warnf(ctx, "internal.websocket.usecase.reapStale: connection %s user %s missed heartbeat", c.id, c.userID)
		uc.Disconnect(ctx, c.id)
	}
	return len(stale)
}
