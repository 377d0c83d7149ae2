package usecase

import (
	"context"
	"sync"
	"time"

	ws "logstream-srv/internal/websocket"
)

type pendingBatch struct {
	entries []ws.LogEntryData
	timer   *time.Timer
}

// batcher accumulates log entries per topic and flushes them as one frame
// after size entries or timeout, whichever comes first.
type batcher struct {
	mu      sync.Mutex
	size    int
	timeout time.Duration
	pending map[string]*pendingBatch
	closed  bool
	flush   func(topic string, entries []ws.LogEntryData)
}

func newBatcher(size int, timeout time.Duration, flush func(string, []ws.LogEntryData)) *batcher {
	return &batcher{
		size:    size,
		timeout: timeout,
		pending: make(map[string]*pendingBatch),
		flush:   flush,
	}
}

func (b *batcher) add(topic string, e ws.LogEntryData) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.flush(topic, []ws.LogEntryData{e})
		return
	}

	p, ok := b.pending[topic]
	if !ok {
		p = &pendingBatch{entries: make([]ws.LogEntryData, 0, b.size)}
		b.pending[topic] = p
		p.timer = time.AfterFunc(b.timeout, func() { b.expire(topic, p) })
	}
	p.entries = append(p.entries, e)
	if len(p.entries) < b.size {
		b.mu.Unlock()
		return
	}
	delete(b.pending, topic)
	p.timer.Stop()
	b.mu.Unlock()

	b.flush(topic, p.entries)
}

func (b *batcher) expire(topic string, p *pendingBatch) {
	b.mu.Lock()
	if b.pending[topic] != p {
		// already flushed on size
		b.mu.Unlock()
		return
	}
	delete(b.pending, topic)
	b.mu.Unlock()

	b.flush(topic, p.entries)
}

// close flushes everything pending. Later adds are emitted immediately.
func (b *batcher) close() {
	b.mu.Lock()
	b.closed = true
	pending := b.pending
	b.pending = make(map[string]*pendingBatch)
	b.mu.Unlock()

	for topic, p := range pending {
		p.timer.Stop()
		b.flush(topic, p.entries)
	}
}

func (uc *implUseCase) flushBatch(topic string, entries []ws.LogEntryData) {
	t, err := ws.ParseTopic(topic)
	if err != nil || len(entries) == 0 {
		return
	}
	frame := ws.NewFrame(ws.MessageTypeLogBatch, ws.LogBatchData{Entries: entries})
	uc.emit(context.Background(), t, newDelivery(topic, frame))
}
