package usecase

import (
	"context"
	"errors"
	"fmt"

	"logstream-srv/internal/model"
	"logstream-srv/internal/source"
	"logstream-srv/internal/stream"
	"logstream-srv/internal/stream/repository"

	"golang.org/x/sync/errgroup"
)

func (uc *implUseCase) Start(ctx context.Context, connectionID string) error {
	if connectionID == "" {
		return stream.ErrNotFound
	}

	uc.mu.Lock()
	if uc.closing {
		uc.mu.Unlock()
		return stream.ErrShuttingDown
	}
	if _, ok := uc.runtimes[connectionID]; ok {
		uc.mu.Unlock()
		return nil
	}
	rt := newRuntime(connectionID, uc.now())
	uc.runtimes[connectionID] = rt
	uc.starts.Add(1)
	uc.mu.Unlock()
	defer uc.starts.Done()

	if err := uc.prepare(ctx, rt); err != nil {
		uc.deregister(rt)
		return err
	}

	uc.mu.Lock()
	if uc.closing {
		uc.mu.Unlock()
		uc.closeAdapter(ctx, rt)
		uc.deregister(rt)
		return stream.ErrShuttingDown
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	rt.setStatus(stream.StatusRunning)
	uc.mu.Unlock()

	uc.l.Infof(ctx, "internal.stream.usecase.Start: connection=%s provider=%s", rt.conn.ID, rt.conn.Provider)
	uc.publishStatus(ctx, rt)
	go uc.run(loopCtx, rt)
	return nil
}

// prepare loads the connection, builds and tests its adapter and marks the
// connection active.
func (uc *implUseCase) prepare(ctx context.Context, rt *runtime) error {
	conn, err := uc.deps.Repo.Detail(ctx, rt.id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return stream.ErrNotFound
		}
		uc.l.Errorf(ctx, "internal.stream.usecase.prepare.Detail: %v", err)
		return err
	}

	secrets, err := uc.openSecrets(conn)
	if err != nil {
		uc.l.Errorf(ctx, "internal.stream.usecase.prepare.openSecrets: connection=%s: %v", conn.ID, err)
		return err
	}

	adapter, err := uc.deps.Sources.New(conn, secrets)
	if err != nil {
		uc.l.Errorf(ctx, "internal.stream.usecase.prepare.Sources.New: connection=%s: %v", conn.ID, err)
		return err
	}

	tctx, cancel := context.WithTimeout(ctx, uc.cfg.AdapterTimeout)
	err = adapter.TestConnection(tctx)
	cancel()
	if err != nil {
		_ = adapter.Close()
		uc.l.Warnf(ctx, "internal.stream.usecase.prepare.TestConnection: connection=%s: %v", conn.ID, err)
		return fmt.Errorf("%w: %w", stream.ErrTestConnection, err)
	}

	if err := uc.deps.Repo.UpdateStatus(ctx, repository.UpdateStatusOptions{
		ID:     conn.ID,
		Status: model.ConnectionStatusActive,
	}); err != nil {
		_ = adapter.Close()
		uc.l.Errorf(ctx, "internal.stream.usecase.prepare.UpdateStatus: connection=%s: %v", conn.ID, err)
		return err
	}

	rt.mu.Lock()
	rt.conn = conn
	rt.adapter = adapter
	if conn.LastSyncAt != nil {
		t := conn.LastSyncAt.UTC()
		rt.lastSync = &t
	}
	rt.mu.Unlock()
	return nil
}

func (uc *implUseCase) openSecrets(conn model.Connection) (map[string]string, error) {
	if conn.Credentials == "" {
		return nil, nil
	}
	if uc.deps.Encrypter == nil {
		return nil, source.Terminal(stream.ErrCredentials)
	}
	secrets := map[string]string{}
	if err := uc.deps.Encrypter.OpenJSON(conn.Credentials, &secrets); err != nil {
		return nil, source.Terminal(fmt.Errorf("%w: %w", stream.ErrCredentials, err))
	}
	return secrets, nil
}

func (uc *implUseCase) Stop(ctx context.Context, connectionID string) error {
	rt, herr := uc.halt(ctx, connectionID)
	if rt == nil {
		return herr
	}
	// A loop that terminated on its own already persisted its error.
	if rt.isTerminated() {
		uc.l.Infof(ctx, "internal.stream.usecase.Stop: connection=%s already terminated", connectionID)
		return herr
	}

	// The loop is cancelled even when waiting for it timed out, so the
	// paused status is written either way.
	pctx := context.WithoutCancel(ctx)
	if err := uc.deps.Repo.UpdateStatus(pctx, repository.UpdateStatusOptions{
		ID:         connectionID,
		Status:     model.ConnectionStatusPaused,
		LastSyncAt: rt.cursor(),
	}); err != nil {
		uc.l.Errorf(ctx, "internal.stream.usecase.Stop.UpdateStatus: connection=%s: %v", connectionID, err)
		return err
	}
	if herr != nil {
		uc.l.Warnf(ctx, "internal.stream.usecase.Stop.halt: connection=%s: %v", connectionID, herr)
		return herr
	}
	uc.l.Infof(ctx, "internal.stream.usecase.Stop: connection=%s", connectionID)
	return nil
}

// halt cancels a loop and waits for it to finish its current tick. When ctx
// ends first the runtime is returned together with ctx.Err().
func (uc *implUseCase) halt(ctx context.Context, connectionID string) (*runtime, error) {
	uc.mu.Lock()
	rt, ok := uc.runtimes[connectionID]
	if !ok {
		uc.mu.Unlock()
		return nil, stream.ErrNotRunning
	}
	if rt.cancel == nil {
		uc.mu.Unlock()
		return nil, stream.ErrStarting
	}
	uc.mu.Unlock()

	rt.requestStop()
	rt.cancel()
	select {
	case <-rt.done:
	case <-ctx.Done():
		return rt, ctx.Err()
	}
	return rt, nil
}

func (uc *implUseCase) Pause(ctx context.Context, connectionID string) error {
	return uc.setPaused(ctx, connectionID, true)
}

func (uc *implUseCase) Resume(ctx context.Context, connectionID string) error {
	return uc.setPaused(ctx, connectionID, false)
}

func (uc *implUseCase) setPaused(ctx context.Context, connectionID string, paused bool) error {
	rt, err := uc.active(connectionID)
	if err != nil {
		return err
	}
	if rt.isPaused() == paused {
		return nil
	}

	status := model.ConnectionStatusActive
	if paused {
		status = model.ConnectionStatusPaused
	}
	if err := uc.deps.Repo.UpdateStatus(ctx, repository.UpdateStatusOptions{ID: connectionID, Status: status}); err != nil {
		uc.l.Errorf(ctx, "internal.stream.usecase.setPaused.UpdateStatus: connection=%s: %v", connectionID, err)
		return err
	}
	rt.setPaused(paused)
	uc.publishStatus(ctx, rt)
	return nil
}

func (uc *implUseCase) active(connectionID string) (*runtime, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	rt, ok := uc.runtimes[connectionID]
	if !ok {
		return nil, stream.ErrNotRunning
	}
	if rt.cancel == nil {
		return nil, stream.ErrStarting
	}
	return rt, nil
}

func (uc *implUseCase) Remove(ctx context.Context, connectionID string) error {
	if _, err := uc.halt(ctx, connectionID); err != nil && !errors.Is(err, stream.ErrNotRunning) {
		return err
	}
	if err := uc.deps.Repo.SoftDelete(ctx, connectionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return stream.ErrNotFound
		}
		uc.l.Errorf(ctx, "internal.stream.usecase.Remove.SoftDelete: connection=%s: %v", connectionID, err)
		return err
	}
	uc.l.Infof(ctx, "internal.stream.usecase.Remove: connection=%s", connectionID)
	return nil
}

// Status falls back to the persisted connection when no loop is registered,
// so a stream that terminated keeps reporting its last error.
func (uc *implUseCase) Status(ctx context.Context, connectionID string) (stream.Runtime, error) {
	uc.mu.Lock()
	rt, ok := uc.runtimes[connectionID]
	uc.mu.Unlock()
	if ok {
		return rt.snapshot(), nil
	}

	conn, err := uc.deps.Repo.Detail(ctx, connectionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return stream.Runtime{}, stream.ErrNotFound
		}
		uc.l.Errorf(ctx, "internal.stream.usecase.Status.Detail: connection=%s: %v", connectionID, err)
		return stream.Runtime{}, err
	}
	if conn.Status != model.ConnectionStatusError {
		return stream.Runtime{}, stream.ErrNotRunning
	}
	return terminatedRuntime(conn), nil
}

func terminatedRuntime(conn model.Connection) stream.Runtime {
	r := stream.Runtime{
		ConnectionID: conn.ID,
		ProjectID:    conn.ProjectID,
		UserID:       conn.UserID,
		Provider:     conn.Provider,
		Status:       stream.StatusError,
		LastError:    conn.LastError,
	}
	if conn.LastSyncAt != nil {
		t := conn.LastSyncAt.UTC()
		r.LastSync = &t
	}
	return r
}

func (uc *implUseCase) List(_ context.Context) []stream.Runtime {
	uc.mu.Lock()
	rts := make([]*runtime, 0, len(uc.runtimes))
	for _, rt := range uc.runtimes {
		rts = append(rts, rt)
	}
	uc.mu.Unlock()

	out := make([]stream.Runtime, len(rts))
	for i, rt := range rts {
		out[i] = rt.snapshot()
	}
	return out
}

// Health counts the registered loops plus connections persisted as errored
// whose loop has already terminated.
func (uc *implUseCase) Health(ctx context.Context) stream.Health {
	var h stream.Health
	running := map[string]struct{}{}
	for _, rt := range uc.List(ctx) {
		running[rt.ConnectionID] = struct{}{}
		h.TotalStreams++
		switch rt.Status {
		case stream.StatusRunning:
			h.RunningStreams++
		case stream.StatusPaused:
			h.PausedStreams++
		case stream.StatusError:
			h.ErrorStreams++
		}
	}

	failed, err := uc.deps.Repo.List(ctx, repository.ListOptions{
		Statuses: []model.ConnectionStatus{model.ConnectionStatusError},
	})
	if err != nil {
		uc.l.Warnf(ctx, "internal.stream.usecase.Health.List: %v", err)
	}
	for _, c := range failed {
		if _, ok := running[c.ID]; ok {
			continue
		}
		h.TotalStreams++
		h.ErrorStreams++
	}

	switch {
	case h.TotalStreams == 0:
		h.Status = stream.HealthIdle
	case h.ErrorStreams > 0:
		h.Status = stream.HealthDegraded
	default:
		h.Status = stream.HealthHealthy
	}
	return h
}

func (uc *implUseCase) RestoreActive(ctx context.Context) (int, error) {
	conns, err := uc.deps.Repo.List(ctx, repository.ListOptions{
		Statuses: []model.ConnectionStatus{model.ConnectionStatusActive},
	})
	if err != nil {
		uc.l.Errorf(ctx, "internal.stream.usecase.RestoreActive.List: %v", err)
		return 0, err
	}

	started := 0
	for _, c := range conns {
		if err := uc.Start(ctx, c.ID); err != nil {
			if errors.Is(err, stream.ErrShuttingDown) {
				return started, err
			}
			uc.l.Warnf(ctx, "internal.stream.usecase.RestoreActive.Start: connection=%s: %v", c.ID, err)
			continue
		}
		started++
	}
	uc.l.Infof(ctx, "internal.stream.usecase.RestoreActive: started %d of %d", started, len(conns))
	return started, nil
}

func (uc *implUseCase) Shutdown(ctx context.Context) error {
	uc.mu.Lock()
	uc.closing = true
	rts := make([]*runtime, 0, len(uc.runtimes))
	for _, rt := range uc.runtimes {
		if rt.cancel != nil {
			rts = append(rts, rt)
		}
	}
	uc.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		done := make(chan struct{})
		go func() {
			uc.starts.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-gctx.Done():
			return gctx.Err()
		}
	})
	for _, rt := range rts {
		g.Go(func() error {
			rt.setStatus(stream.StatusStopping)
			rt.cancel()
			select {
			case <-rt.done:
				return nil
			case <-gctx.Done():
				return fmt.Errorf("connection %s: %w", rt.id, gctx.Err())
			}
		})
	}
	if err := g.Wait(); err != nil {
		uc.l.Errorf(ctx, "internal.stream.usecase.Shutdown: %v", err)
		return err
	}

	if uc.deps.Processor != nil {
		if err := uc.deps.Processor.Wait(ctx); err != nil {
			uc.l.Errorf(ctx, "internal.stream.usecase.Shutdown.Processor.Wait: %v", err)
			return err
		}
	}
	uc.l.Infof(ctx, "internal.stream.usecase.Shutdown: stopped %d streams", len(rts))
	return nil
}

func (uc *implUseCase) deregister(rt *runtime) {
	uc.mu.Lock()
	if cur, ok := uc.runtimes[rt.id]; ok && cur == rt {
		delete(uc.runtimes, rt.id)
	}
	uc.mu.Unlock()
}

func (uc *implUseCase) closeAdapter(ctx context.Context, rt *runtime) {
	if rt.adapter == nil {
		return
	}
	if err := rt.adapter.Close(); err != nil {
		uc.l.Warnf(ctx, "internal.stream.usecase.closeAdapter: connection=%s: %v", rt.id, err)
	}
}
