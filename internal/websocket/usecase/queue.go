package usecase

import (
	"sync"

	ws "logstream-srv/internal/websocket"
)

type outMessage struct {
	binary bool
	data   []byte
}

// queue is the bounded outbound buffer of one connection. Once it holds
// dropAt messages, each push evicts the oldest ones so its length never
// exceeds dropAt (and therefore max).
type queue struct {
	mu     sync.Mutex
	items  []outMessage
	max    int
	dropAt int
	notify chan struct{}
	closed bool
}

func newQueue(max, dropAt int) *queue {
	if max <= 0 {
		max = 1
	}
	if dropAt <= 0 || dropAt > max {
		dropAt = max
	}
	return &queue{
		items:  make([]outMessage, 0, dropAt),
		max:    max,
		dropAt: dropAt,
		notify: make(chan struct{}, 1),
	}
}

// push appends m and returns how many old messages were evicted to make room.
func (q *queue) push(m outMessage) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, ws.ErrConnectionClosed
	}

	dropped := 0
	if n := len(q.items) - q.dropAt + 1; n > 0 {
		clear(q.items[:n])
		q.items = append(q.items[:0], q.items[n:]...)
		dropped = n
	}
	q.items = append(q.items, m)

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return dropped, nil
}

// drain removes and returns everything queued.
func (q *queue) drain() []outMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = make([]outMessage, 0, q.dropAt)
	return out
}

func (q *queue) ready() <-chan struct{} {
	return q.notify
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
