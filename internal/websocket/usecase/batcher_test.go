package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "logstream-srv/internal/websocket"
)

type flushRecorder struct {
	mu      sync.Mutex
	batches map[string][][]ws.LogEntryData
}

func (r *flushRecorder) flush(topic string, entries []ws.LogEntryData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.batches == nil {
		r.batches = make(map[string][][]ws.LogEntryData)
	}
	r.batches[topic] = append(r.batches[topic], entries)
}

func (r *flushRecorder) get(topic string) [][]ws.LogEntryData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[topic]
}

func TestBatcherFlushesOnSize(t *testing.T) {
	rec := &flushRecorder{}
	b := newBatcher(3, time.Hour, rec.flush)

	for i := 0; i < 7; i++ {
		b.add("project:p1", ws.LogEntryData{ID: string(rune('a' + i))})
	}

	batches := rec.get("project:p1")
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 3)
	assert.Equal(t, "a", batches[0][0].ID)
	assert.Equal(t, "d", batches[1][0].ID)

	b.close()
	batches = rec.get("project:p1")
	require.Len(t, batches, 3)
	assert.Equal(t, "g", batches[2][0].ID)
}

func TestBatcherFlushesOnTimeout(t *testing.T) {
	rec := &flushRecorder{}
	b := newBatcher(100, 20*time.Millisecond, rec.flush)

	b.add("project:p1", ws.LogEntryData{ID: "1"})
	b.add("project:p2", ws.LogEntryData{ID: "2"})

	require.Eventually(t, func() bool {
		return len(rec.get("project:p1")) == 1 && len(rec.get("project:p2")) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBatcherAfterClose(t *testing.T) {
	rec := &flushRecorder{}
	b := newBatcher(10, time.Hour, rec.flush)
	b.close()

	b.add("project:p1", ws.LogEntryData{ID: "1"})
	assert.Len(t, rec.get("project:p1"), 1)
}

func TestBroadcastBatchesLogEntries(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.BatchTimeout = time.Hour
	uc := newTestUseCase(t, cfg, Dependencies{})
	id, tr := connect(t, uc, "u1")
	require.NoError(t, uc.Subscribe(ctx, id, "project:p1"))

	require.NoError(t, uc.Broadcast(ctx, "project:p1", ws.NewFrame(ws.MessageTypeLogEntry, ws.LogEntryData{ID: "1"})))
	require.NoError(t, uc.Broadcast(ctx, "project:p1", ws.NewFrame(ws.MessageTypeLogEntry, ws.LogEntryData{ID: "2"})))

	frames := waitFrames(t, tr, ws.MessageTypeLogBatch, 1)
	var batch ws.LogBatchData
	require.NoError(t, json.Unmarshal(frames[0].Data, &batch))
	require.Len(t, batch.Entries, 2)
	assert.Equal(t, "1", batch.Entries[0].ID)
	assert.Zero(t, tr.countOf(ws.MessageTypeLogEntry))
}
