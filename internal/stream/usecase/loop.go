package usecase

import (
	"context"
	"errors"
	"fmt"

	"logstream-srv/internal/model"
	"logstream-srv/internal/processor"
	"logstream-srv/internal/source"
	"logstream-srv/internal/stream"
	"logstream-srv/internal/stream/repository"
)

// run drives one connection until ctx is cancelled, a terminal adapter error
// occurs or the consecutive error ceiling is exceeded. Cancellation is only
// observed between ticks.
func (uc *implUseCase) run(ctx context.Context, rt *runtime) {
	defer close(rt.done)
	defer uc.deregister(rt)
	defer uc.closeAdapter(context.Background(), rt)

	for {
		if ctx.Err() != nil {
			return
		}
		if rt.isPaused() {
			if !rt.sleep(ctx, uc.cfg.PauseRecheck) {
				return
			}
			continue
		}

		err := uc.tick(ctx, rt)
		if err == nil {
			if !rt.sleep(ctx, uc.cfg.PollInterval) {
				return
			}
			continue
		}

		count := rt.fail(err)
		uc.l.Warnf(ctx, "internal.stream.usecase.run.tick: connection=%s errors=%d: %v", rt.id, count, err)

		if source.IsTerminal(err) || count > uc.cfg.ErrorCeiling {
			if !source.IsTerminal(err) {
				err = fmt.Errorf("%w (%d): %w", stream.ErrCeiling, count, err)
			}
			uc.terminate(rt, err)
			return
		}

		uc.recordError(rt, err)
		if !rt.sleep(ctx, uc.backoff.Delay(count)) {
			return
		}
	}
}

// tick fetches since the cursor and processes the result in chunks. The
// cursor advances to the tick start only after every chunk succeeded.
func (uc *implUseCase) tick(ctx context.Context, rt *runtime) error {
	// In-flight work is not cancelled by stop; it is bounded by the adapter
	// timeout instead.
	base := context.WithoutCancel(ctx)
	started := uc.now().UTC()

	fctx, cancel := context.WithTimeout(base, uc.cfg.AdapterTimeout)
	events, err := rt.adapter.FetchSince(fctx, rt.cursor())
	cancel()
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	batches, processed := 0, 0
	for start := 0; start < len(events); start += uc.cfg.BatchSize {
		end := min(start+uc.cfg.BatchSize, len(events))
		res, err := uc.deps.Processor.Process(base, processor.ProcessInput{
			Connection: rt.conn,
			Events:     events[start:end],
		})
		if err != nil {
			return fmt.Errorf("process: %w", err)
		}
		batches++
		processed += res.Processed
	}

	wasFailing := rt.snapshot().ErrorCount > 0
	last := rt.succeed(started, batches, processed)
	// An explicit stop owns the persisted status from here on.
	if (len(events) > 0 || wasFailing) && !rt.isStopRequested() {
		if err := uc.deps.Repo.UpdateStatus(base, repository.UpdateStatusOptions{
			ID:         rt.id,
			Status:     model.ConnectionStatusActive,
			LastSyncAt: &last,
			LastError:  new(string),
		}); err != nil && !errors.Is(err, repository.ErrNotFound) {
			uc.l.Warnf(base, "internal.stream.usecase.tick.UpdateStatus: connection=%s: %v", rt.id, err)
		}
	}
	if wasFailing {
		uc.publishStatus(base, rt)
	}
	return nil
}

// recordError persists a retryable failure without leaving the active state.
func (uc *implUseCase) recordError(rt *runtime, err error) {
	ctx := context.Background()
	if rt.isStopRequested() {
		return
	}
	msg := err.Error()
	if uerr := uc.deps.Repo.UpdateStatus(ctx, repository.UpdateStatusOptions{
		ID:        rt.id,
		Status:    model.ConnectionStatusActive,
		LastError: &msg,
	}); uerr != nil {
		uc.l.Warnf(ctx, "internal.stream.usecase.recordError.UpdateStatus: connection=%s: %v", rt.id, uerr)
	}
	uc.publishStatus(ctx, rt)
}

// terminate marks the connection as errored. It needs an explicit start to
// recover.
func (uc *implUseCase) terminate(rt *runtime, err error) {
	ctx := context.Background()
	rt.markTerminated()
	msg := err.Error()
	last := rt.cursor()
	if uerr := uc.deps.Repo.UpdateStatus(ctx, repository.UpdateStatusOptions{
		ID:         rt.id,
		Status:     model.ConnectionStatusError,
		LastSyncAt: last,
		LastError:  &msg,
	}); uerr != nil {
		uc.l.Errorf(ctx, "internal.stream.usecase.terminate.UpdateStatus: connection=%s: %v", rt.id, uerr)
	}
	uc.l.Errorf(ctx, "internal.stream.usecase.terminate: connection=%s: %v", rt.id, err)
	uc.publishStatus(ctx, rt)
}
