package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"logstream-srv/internal/alert"
	"logstream-srv/internal/archive"
	"logstream-srv/internal/model"
	"logstream-srv/internal/processor"
	ws "logstream-srv/internal/websocket"
)

func (uc *implUseCase) Process(ctx context.Context, input processor.ProcessInput) (processor.ProcessResult, error) {
	conn := input.Connection
	if conn.ID == "" || conn.ProjectID == "" || conn.UserID == "" {
		return processor.ProcessResult{}, processor.ErrInvalidInput
	}
	if len(input.Events) == 0 {
		return processor.ProcessResult{}, nil
	}

	now := uc.now()
	events := make([]model.LogEvent, len(input.Events))
	for i, raw := range input.Events {
		events[i] = normalize(conn, raw, now)
	}

	uc.metrics.batches.Add(1)
	res, err := uc.deps.Events.BulkInsert(ctx, events)
	if err != nil {
		uc.metrics.failed.Add(int64(len(events)))
		uc.l.Errorf(ctx, "internal.processor.usecase.Process.BulkInsert: connection=%s: %v", conn.ID, err)
		return processor.ProcessResult{Failed: len(events)}, fmt.Errorf("%w: %w", processor.ErrPersist, err)
	}
	uc.metrics.processed.Add(int64(res.Stored))
	uc.metrics.failed.Add(int64(res.Failed))
	if res.Failed > 0 {
		uc.l.Warnf(ctx, "internal.processor.usecase.Process.BulkInsert: connection=%s stored=%d failed=%d", conn.ID, res.Stored, res.Failed)
	}

	uc.fanout(ctx, conn, events, now)

	return processor.ProcessResult{
		Processed: res.Stored,
		Failed:    res.Failed,
		Events:    events,
	}, nil
}

// fanout starts one task per configured consumer. The tasks outlive ctx
// cancellation so a dispatched batch is delivered completely, bounded by
// the fan-out timeout.
func (uc *implUseCase) fanout(ctx context.Context, conn model.Connection, events []model.LogEvent, now time.Time) {
	type task struct {
		name string
		run  func(ctx context.Context) error
	}

	var tasks []task
	if uc.deps.Indexer != nil {
		tasks = append(tasks, task{"index", func(ctx context.Context) error {
			return uc.deps.Indexer.IndexBatch(ctx, events)
		}})
	}
	if uc.deps.Alerts != nil {
		tasks = append(tasks, task{"alerts", func(ctx context.Context) error {
			_, err := uc.deps.Alerts.CheckBatch(ctx, alert.CheckBatchInput{ProjectID: conn.ProjectID, Events: events})
			return err
		}})
	}
	if uc.deps.Broadcaster != nil {
		tasks = append(tasks, task{"broadcast", func(ctx context.Context) error {
			return uc.broadcast(ctx, conn.ProjectID, events)
		}})
	}
	if uc.deps.Archiver != nil {
		tasks = append(tasks, task{"archive", func(ctx context.Context) error {
			return uc.deps.Archiver.ArchiveBatch(ctx, archive.BatchInput{
				ProjectID:    conn.ProjectID,
				ConnectionID: conn.ID,
				Events:       events,
				At:           now,
			})
		}})
	}

	base := context.WithoutCancel(ctx)
	for _, t := range tasks {
		uc.wg.Add(1)
		uc.metrics.inFlight.Add(1)
		go func() {
			defer uc.wg.Done()
			defer uc.metrics.inFlight.Add(-1)

			tctx, cancel := context.WithTimeout(base, uc.cfg.FanoutTimeout)
			defer cancel()
			if err := t.run(tctx); err != nil {
				uc.metrics.fanoutErrors.Add(1)
				uc.l.Errorf(tctx, "internal.processor.usecase.fanout.%s: connection=%s: %v", t.name, conn.ID, err)
			}
		}()
	}
}

// broadcast pushes each event to the project topic in order. The hub batches
// log_entry frames per topic.
func (uc *implUseCase) broadcast(ctx context.Context, projectID string, events []model.LogEvent) error {
	topic := ws.ProjectTopic(projectID)
	var errs []error
	for _, e := range events {
		frame := ws.NewFrame(ws.MessageTypeLogEntry, ws.NewLogEntryData(e))
		if err := uc.deps.Broadcaster.Broadcast(ctx, topic, frame); err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	return errors.Join(errs...)
}

func (uc *implUseCase) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		uc.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
