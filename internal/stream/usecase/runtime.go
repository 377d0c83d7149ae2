package usecase

import (
	"context"
	"sync"
	"time"

	"logstream-srv/internal/model"
	"logstream-srv/internal/source"
	"logstream-srv/internal/stream"
)

// runtime is the state of one polling loop. conn and adapter are set once
// before the loop starts; fields below mu are shared between the loop and
// the manager.
type runtime struct {
	id        string
	conn      model.Connection
	adapter   source.Adapter
	startedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
	// wake interrupts a paused or idle loop.
	wake chan struct{}

	mu         sync.Mutex
	status     stream.Status
	paused     bool
	stopReq    bool
	terminated bool
	errorCount int
	lastError  string
	lastSync   *time.Time
	batches    int64
	processed  int64
}

func newRuntime(id string, now time.Time) *runtime {
	return &runtime{
		id:        id,
		conn:      model.Connection{ID: id},
		startedAt: now,
		done:      make(chan struct{}),
		wake:      make(chan struct{}, 1),
		status:    stream.StatusStarting,
	}
}

func (rt *runtime) snapshot() stream.Runtime {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	s := stream.Runtime{
		ConnectionID: rt.conn.ID,
		ProjectID:    rt.conn.ProjectID,
		UserID:       rt.conn.UserID,
		Provider:     rt.conn.Provider,
		Status:       rt.status,
		ErrorCount:   rt.errorCount,
		LastError:    rt.lastError,
		StartedAt:    rt.startedAt,
		Batches:      rt.batches,
		Processed:    rt.processed,
	}
	if rt.lastSync != nil {
		t := *rt.lastSync
		s.LastSync = &t
	}
	return s
}

func (rt *runtime) setStatus(s stream.Status) {
	rt.mu.Lock()
	rt.status = s
	rt.mu.Unlock()
}

func (rt *runtime) getStatus() stream.Status {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.status
}

// requestStop marks an explicit stop. Unlike shutdown it hands the persisted
// status over to the caller.
func (rt *runtime) requestStop() {
	rt.mu.Lock()
	rt.stopReq = true
	if !rt.terminated {
		rt.status = stream.StatusStopping
	}
	rt.mu.Unlock()
}

func (rt *runtime) isStopRequested() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.stopReq
}

func (rt *runtime) markTerminated() {
	rt.mu.Lock()
	rt.terminated = true
	rt.status = stream.StatusError
	rt.mu.Unlock()
}

func (rt *runtime) isTerminated() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.terminated
}

func (rt *runtime) setPaused(p bool) {
	rt.mu.Lock()
	rt.paused = p
	if p {
		rt.status = stream.StatusPaused
	} else if rt.status == stream.StatusPaused {
		rt.status = stream.StatusRunning
	}
	rt.mu.Unlock()
	rt.signal()
}

func (rt *runtime) isPaused() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.paused
}

func (rt *runtime) signal() {
	select {
	case rt.wake <- struct{}{}:
	default:
	}
}

func (rt *runtime) cursor() *time.Time {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.lastSync == nil {
		return nil
	}
	t := *rt.lastSync
	return &t
}

// succeed advances the cursor to at, never backwards, and clears the error
// state.
func (rt *runtime) succeed(at time.Time, batches, processed int) time.Time {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.lastSync == nil || at.After(*rt.lastSync) {
		t := at
		rt.lastSync = &t
	}
	rt.errorCount = 0
	rt.lastError = ""
	rt.batches += int64(batches)
	rt.processed += int64(processed)
	if !rt.paused && rt.status != stream.StatusStopping {
		rt.status = stream.StatusRunning
	}
	return *rt.lastSync
}

func (rt *runtime) fail(err error) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.errorCount++
	rt.lastError = err.Error()
	if rt.status != stream.StatusStopping {
		rt.status = stream.StatusError
	}
	return rt.errorCount
}

// sleep waits for d, a wake signal or ctx. It reports false when ctx ended.
func (rt *runtime) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-rt.wake:
		return true
	case <-t.C:
		return true
	}
}
