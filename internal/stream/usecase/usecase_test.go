package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"logstream-srv/internal/model"
	"logstream-srv/internal/processor"
	"logstream-srv/internal/source"
	"logstream-srv/internal/stream"
	"logstream-srv/internal/stream/repository"
	ws "logstream-srv/internal/websocket"
	pkgLog "logstream-srv/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tickFor = 2 * time.Millisecond
)

type fakeRepo struct {
	mu      sync.Mutex
	conns   map[string]model.Connection
	updates []repository.UpdateStatusOptions
	deleted []string
}

func newFakeRepo(conns ...model.Connection) *fakeRepo {
	r := &fakeRepo{conns: map[string]model.Connection{}}
	for _, c := range conns {
		r.conns[c.ID] = c
	}
	return r
}

func (r *fakeRepo) Detail(_ context.Context, id string) (model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok || c.DeletedAt != nil {
		return model.Connection{}, repository.ErrNotFound
	}
	return c, nil
}

func (r *fakeRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Connection
	for _, c := range r.conns {
		for _, s := range opts.Statuses {
			if c.Status == s {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, opts repository.UpdateStatusOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[opts.ID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = opts.Status
	if opts.LastSyncAt != nil {
		t := *opts.LastSyncAt
		c.LastSyncAt = &t
	}
	if opts.LastError != nil {
		c.LastError = *opts.LastError
	}
	r.conns[opts.ID] = c
	r.updates = append(r.updates, opts)
	return nil
}

func (r *fakeRepo) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok || c.DeletedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now()
	c.DeletedAt = &now
	r.conns[id] = c
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeRepo) get(id string) model.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[id]
}

type fetchFunc func(call int, cursor *time.Time) ([]source.RawEvent, error)

type fakeAdapter struct {
	mu        sync.Mutex
	fetch     fetchFunc
	testErr   error
	calls     int
	cursors   []*time.Time
	closed    atomic.Bool
	closeGate chan struct{}
}

func (a *fakeAdapter) TestConnection(context.Context) error { return a.testErr }

func (a *fakeAdapter) FetchSince(_ context.Context, cursor *time.Time) ([]source.RawEvent, error) {
	a.mu.Lock()
	call := a.calls
	a.calls++
	var c *time.Time
	if cursor != nil {
		t := *cursor
		c = &t
	}
	a.cursors = append(a.cursors, c)
	fetch := a.fetch
	a.mu.Unlock()
	if fetch == nil {
		return nil, nil
	}
	return fetch(call, cursor)
}

func (a *fakeAdapter) Close() error {
	if a.closeGate != nil {
		<-a.closeGate
	}
	a.closed.Store(true)
	return nil
}

func (a *fakeAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *fakeAdapter) seenCursors() []*time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*time.Time(nil), a.cursors...)
}

type fakeProcessor struct {
	mu      sync.Mutex
	batches []int
	err     error
}

func (p *fakeProcessor) Process(_ context.Context, in processor.ProcessInput) (processor.ProcessResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return processor.ProcessResult{}, p.err
	}
	p.batches = append(p.batches, len(in.Events))
	return processor.ProcessResult{Processed: len(in.Events)}, nil
}

func (p *fakeProcessor) Wait(context.Context) error { return nil }

func (p *fakeProcessor) Stats() processor.Stats { return processor.Stats{} }

type fakeBroadcaster struct {
	mu       sync.Mutex
	statuses []string
}

func (b *fakeBroadcaster) Broadcast(_ context.Context, _ string, f ws.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d, ok := f.Data.(ws.StreamStatusData); ok {
		b.statuses = append(b.statuses, d.Status)
	}
	return nil
}

func testConn(id string) model.Connection {
	return model.Connection{ID: id, ProjectID: "p1", UserID: "u1", Provider: "fake", Status: model.ConnectionStatusPaused}
}

type harness struct {
	uc      *implUseCase
	repo    *fakeRepo
	adapter *fakeAdapter
	proc    *fakeProcessor
	bc      *fakeBroadcaster
	builds  atomic.Int32
}

func newHarness(t *testing.T, cfg Config, conns ...model.Connection) *harness {
	t.Helper()
	h := &harness{
		repo:    newFakeRepo(conns...),
		adapter: &fakeAdapter{},
		proc:    &fakeProcessor{},
		bc:      &fakeBroadcaster{},
	}
	reg := source.NewRegistry()
	reg.Register("fake", func(model.Connection, map[string]string) (source.Adapter, error) {
		h.builds.Add(1)
		return h.adapter, nil
	})

	if cfg.PollInterval == 0 {
		cfg.PollInterval = tickFor
	}
	cfg.BaseBackoff = time.Millisecond
	cfg.MaxBackoff = 4 * time.Millisecond
	cfg.PauseRecheck = tickFor

	h.uc = newUseCase(pkgLog.NewNop(), cfg, Dependencies{
		Repo:        h.repo,
		Sources:     reg,
		Processor:   h.proc,
		Broadcaster: h.bc,
	})

	var clock atomic.Int64
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.uc.now = func() time.Time {
		return base.Add(time.Duration(clock.Add(1)) * time.Second)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = h.uc.Shutdown(ctx)
	})
	return h
}

func TestErrorCeilingTerminatesStream(t *testing.T) {
	h := newHarness(t, Config{ErrorCeiling: 3}, testConn("c1"))
	h.adapter.fetch = func(int, *time.Time) ([]source.RawEvent, error) {
		return nil, errors.New("503 service unavailable")
	}
	ctx := context.Background()

	require.NoError(t, h.uc.Start(ctx, "c1"))

	require.Eventually(t, func() bool {
		return h.repo.get("c1").Status == model.ConnectionStatusError
	}, waitFor, tickFor)
	require.Eventually(t, func() bool { return len(h.uc.List(ctx)) == 0 }, waitFor, tickFor)

	assert.Equal(t, 4, h.adapter.callCount())
	assert.Contains(t, h.repo.get("c1").LastError, "503")
	assert.True(t, h.adapter.closed.Load())

	rt, err := h.uc.Status(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, stream.StatusError, rt.Status)
	assert.Contains(t, rt.LastError, "too many consecutive failures")
	assert.Contains(t, rt.LastError, "503")

	hl := h.uc.Health(ctx)
	assert.Equal(t, 1, hl.TotalStreams)
	assert.Equal(t, 1, hl.ErrorStreams)
	assert.Equal(t, stream.HealthDegraded, hl.Status)
}

func TestTerminalErrorStopsImmediately(t *testing.T) {
	h := newHarness(t, Config{ErrorCeiling: 10}, testConn("c1"))
	h.adapter.fetch = func(int, *time.Time) ([]source.RawEvent, error) {
		return nil, source.Terminalf("401 unauthorized")
	}

	require.NoError(t, h.uc.Start(context.Background(), "c1"))
	require.Eventually(t, func() bool {
		return h.repo.get("c1").Status == model.ConnectionStatusError
	}, waitFor, tickFor)
	assert.Equal(t, 1, h.adapter.callCount())
}

func TestLastSyncIsMonotonicAndSkipsFailedTicks(t *testing.T) {
	h := newHarness(t, Config{ErrorCeiling: 10}, testConn("c1"))
	h.adapter.fetch = func(call int, _ *time.Time) ([]source.RawEvent, error) {
		if call == 2 || call == 3 {
			return nil, errors.New("timeout")
		}
		return []source.RawEvent{{Message: "x"}}, nil
	}

	require.NoError(t, h.uc.Start(context.Background(), "c1"))
	require.Eventually(t, func() bool { return h.adapter.callCount() >= 7 }, waitFor, tickFor)

	cursors := h.adapter.seenCursors()
	assert.Nil(t, cursors[0])
	for i := 2; i < len(cursors); i++ {
		require.NotNil(t, cursors[i])
		assert.False(t, cursors[i].Before(*cursors[i-1]), "cursor went backwards at %d", i)
	}
	// Calls 2 and 3 failed, so calls 3 and 4 still see the cursor set by call 1.
	assert.Equal(t, *cursors[2], *cursors[3])
	assert.Equal(t, *cursors[2], *cursors[4])
	assert.True(t, cursors[5].After(*cursors[4]))
}

func TestStartIsIdempotent(t *testing.T) {
	h := newHarness(t, Config{}, testConn("c1"))
	ctx := context.Background()

	require.NoError(t, h.uc.Start(ctx, "c1"))
	require.NoError(t, h.uc.Start(ctx, "c1"))

	assert.EqualValues(t, 1, h.builds.Load())
	assert.Len(t, h.uc.List(ctx), 1)
	assert.Equal(t, model.ConnectionStatusActive, h.repo.get("c1").Status)

	rt, err := h.uc.Status(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "p1", rt.ProjectID)
}

func TestStartAfterShutdownIsRejected(t *testing.T) {
	h := newHarness(t, Config{}, testConn("c1"), testConn("c2"))
	ctx := context.Background()

	require.NoError(t, h.uc.Start(ctx, "c1"))
	require.NoError(t, h.uc.Shutdown(ctx))

	assert.ErrorIs(t, h.uc.Start(ctx, "c2"), stream.ErrShuttingDown)
	assert.Empty(t, h.uc.List(ctx))
	// Shutdown leaves the persisted status alone so restarts restore it.
	assert.Equal(t, model.ConnectionStatusActive, h.repo.get("c1").Status)
}

func TestStartFailsWhenConnectionTestFails(t *testing.T) {
	h := newHarness(t, Config{}, testConn("c1"))
	h.adapter.testErr = errors.New("bad credentials")
	ctx := context.Background()

	err := h.uc.Start(ctx, "c1")
	assert.ErrorIs(t, err, stream.ErrTestConnection)
	assert.Empty(t, h.uc.List(ctx))
	assert.Equal(t, model.ConnectionStatusPaused, h.repo.get("c1").Status)
	assert.True(t, h.adapter.closed.Load())

	assert.ErrorIs(t, h.uc.Start(ctx, "missing"), stream.ErrNotFound)
}

func TestStopPersistsPausedAndRemovesRuntime(t *testing.T) {
	h := newHarness(t, Config{}, testConn("c1"))
	h.adapter.fetch = func(int, *time.Time) ([]source.RawEvent, error) {
		return []source.RawEvent{{Message: "x"}}, nil
	}
	ctx := context.Background()

	require.NoError(t, h.uc.Start(ctx, "c1"))
	require.Eventually(t, func() bool { return h.adapter.callCount() >= 2 }, waitFor, tickFor)
	require.NoError(t, h.uc.Stop(ctx, "c1"))

	c := h.repo.get("c1")
	assert.Equal(t, model.ConnectionStatusPaused, c.Status)
	assert.NotNil(t, c.LastSyncAt)
	assert.Empty(t, h.uc.List(ctx))
	assert.True(t, h.adapter.closed.Load())
	assert.ErrorIs(t, h.uc.Stop(ctx, "c1"), stream.ErrNotRunning)
}

func TestStopKeepsTerminalError(t *testing.T) {
	h := newHarness(t, Config{ErrorCeiling: 10}, testConn("c1"))
	gate := make(chan struct{})
	h.adapter.closeGate = gate
	h.adapter.fetch = func(int, *time.Time) ([]source.RawEvent, error) {
		return nil, source.Terminalf("401 unauthorized")
	}
	ctx := context.Background()

	require.NoError(t, h.uc.Start(ctx, "c1"))
	require.Eventually(t, func() bool {
		return h.repo.get("c1").Status == model.ConnectionStatusError
	}, waitFor, tickFor)
	// The loop is blocked closing its adapter, so it is still registered.
	require.Len(t, h.uc.List(ctx), 1)

	errc := make(chan error, 1)
	go func() { errc <- h.uc.Stop(ctx, "c1") }()
	require.Eventually(t, func() bool {
		h.uc.mu.Lock()
		defer h.uc.mu.Unlock()
		rt, ok := h.uc.runtimes["c1"]
		return ok && rt.isStopRequested()
	}, waitFor, tickFor)
	close(gate)

	require.NoError(t, <-errc)
	c := h.repo.get("c1")
	assert.Equal(t, model.ConnectionStatusError, c.Status)
	assert.Contains(t, c.LastError, "401")
}

func TestStopTimeoutStillPersistsPaused(t *testing.T) {
	h := newHarness(t, Config{}, testConn("c1"))
	release := make(chan struct{})
	var entered atomic.Bool
	h.adapter.fetch = func(call int, _ *time.Time) ([]source.RawEvent, error) {
		if call == 0 {
			entered.Store(true)
			<-release
		}
		return []source.RawEvent{{Message: "x"}}, nil
	}
	ctx := context.Background()

	require.NoError(t, h.uc.Start(ctx, "c1"))
	require.Eventually(t, entered.Load, waitFor, tickFor)

	sctx, cancel := context.WithTimeout(ctx, 5*tickFor)
	err := h.uc.Stop(sctx, "c1")
	cancel()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, model.ConnectionStatusPaused, h.repo.get("c1").Status)

	// The in-flight tick finishes without flipping the status back.
	close(release)
	require.Eventually(t, func() bool { return len(h.uc.List(ctx)) == 0 }, waitFor, tickFor)
	assert.True(t, h.adapter.closed.Load())
	assert.Equal(t, model.ConnectionStatusPaused, h.repo.get("c1").Status)
}

func TestPauseAndResume(t *testing.T) {
	h := newHarness(t, Config{}, testConn("c1"))
	ctx := context.Background()

	require.NoError(t, h.uc.Start(ctx, "c1"))
	require.Eventually(t, func() bool { return h.adapter.callCount() >= 1 }, waitFor, tickFor)

	require.NoError(t, h.uc.Pause(ctx, "c1"))
	rt, err := h.uc.Status(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, stream.StatusPaused, rt.Status)
	assert.Equal(t, model.ConnectionStatusPaused, h.repo.get("c1").Status)

	// Let any tick that was already running finish.
	time.Sleep(10 * tickFor)
	calls := h.adapter.callCount()
	time.Sleep(10 * tickFor)
	assert.Equal(t, calls, h.adapter.callCount())

	require.NoError(t, h.uc.Resume(ctx, "c1"))
	require.Eventually(t, func() bool { return h.adapter.callCount() > calls }, waitFor, tickFor)
	assert.Equal(t, model.ConnectionStatusActive, h.repo.get("c1").Status)

	h.bc.mu.Lock()
	assert.Contains(t, h.bc.statuses, string(stream.StatusPaused))
	h.bc.mu.Unlock()
}

func TestProcessInBatches(t *testing.T) {
	h := newHarness(t, Config{BatchSize: 2, PollInterval: time.Hour}, testConn("c1"))
	h.adapter.fetch = func(call int, _ *time.Time) ([]source.RawEvent, error) {
		return make([]source.RawEvent, 5), nil
	}

	require.NoError(t, h.uc.Start(context.Background(), "c1"))
	require.Eventually(t, func() bool {
		h.proc.mu.Lock()
		defer h.proc.mu.Unlock()
		return len(h.proc.batches) == 3
	}, waitFor, tickFor)

	h.proc.mu.Lock()
	assert.Equal(t, []int{2, 2, 1}, h.proc.batches)
	h.proc.mu.Unlock()

	rt, err := h.uc.Status(context.Background(), "c1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, rt.Batches)
	assert.EqualValues(t, 5, rt.Processed)
}

func TestProcessErrorDoesNotAdvanceCursor(t *testing.T) {
	h := newHarness(t, Config{ErrorCeiling: 2}, testConn("c1"))
	h.proc.err = processor.ErrPersist
	h.adapter.fetch = func(int, *time.Time) ([]source.RawEvent, error) {
		return []source.RawEvent{{Message: "x"}}, nil
	}

	require.NoError(t, h.uc.Start(context.Background(), "c1"))
	require.Eventually(t, func() bool {
		return h.repo.get("c1").Status == model.ConnectionStatusError
	}, waitFor, tickFor)
	for _, c := range h.adapter.seenCursors() {
		assert.Nil(t, c)
	}
	assert.Nil(t, h.repo.get("c1").LastSyncAt)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, Config{ErrorCeiling: 100}, testConn("c1"), testConn("c2"))
	ctx := context.Background()
	assert.Equal(t, stream.HealthIdle, h.uc.Health(ctx).Status)

	require.NoError(t, h.uc.Start(ctx, "c1"))
	require.NoError(t, h.uc.Start(ctx, "c2"))
	require.NoError(t, h.uc.Pause(ctx, "c2"))

	hl := h.uc.Health(ctx)
	assert.Equal(t, 2, hl.TotalStreams)
	assert.Equal(t, 1, hl.PausedStreams)
	assert.Equal(t, stream.HealthHealthy, hl.Status)

	h.adapter.mu.Lock()
	h.adapter.fetch = func(int, *time.Time) ([]source.RawEvent, error) { return nil, errors.New("down") }
	h.adapter.mu.Unlock()
	require.Eventually(t, func() bool {
		hl := h.uc.Health(ctx)
		return hl.ErrorStreams == 1 && hl.Status == stream.HealthDegraded
	}, waitFor, tickFor)
}

func TestRemove(t *testing.T) {
	h := newHarness(t, Config{}, testConn("c1"))
	ctx := context.Background()

	require.NoError(t, h.uc.Start(ctx, "c1"))
	require.NoError(t, h.uc.Remove(ctx, "c1"))
	assert.Empty(t, h.uc.List(ctx))
	assert.Equal(t, []string{"c1"}, h.repo.deleted)
	assert.ErrorIs(t, h.uc.Start(ctx, "c1"), stream.ErrNotFound)
	assert.ErrorIs(t, h.uc.Remove(ctx, "c1"), stream.ErrNotFound)
}

func TestRestoreActive(t *testing.T) {
	active := testConn("c1")
	active.Status = model.ConnectionStatusActive
	h := newHarness(t, Config{}, active, testConn("c2"))
	ctx := context.Background()

	n, err := h.uc.RestoreActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = h.uc.Status(ctx, "c1")
	assert.NoError(t, err)
	_, err = h.uc.Status(ctx, "c2")
	assert.ErrorIs(t, err, stream.ErrNotRunning)
	_, err = h.uc.Status(ctx, "missing")
	assert.ErrorIs(t, err, stream.ErrNotFound)
}

func TestCredentialsWithoutEncrypterAreTerminal(t *testing.T) {
	c := testConn("c1")
	c.Credentials = "sealed"
	h := newHarness(t, Config{}, c)

	err := h.uc.Start(context.Background(), "c1")
	assert.ErrorIs(t, err, stream.ErrCredentials)
	assert.True(t, source.IsTerminal(err))
}
