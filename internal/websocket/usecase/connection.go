package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	ws "logstream-srv/internal/websocket"
)

// connection is one live push client.
type connection struct {
	id        string
	userID    string
	metadata  map[string]string
	transport ws.Transport
	queue     *queue
	uc        *implUseCase

	// topics is guarded by uc.mu.
	topics map[string]struct{}

	filter   atomic.Pointer[logFilter]
	lastSeen atomic.Int64
	recent   recentKeys

	done      chan struct{}
	closeOnce sync.Once
}

const recentKeyCap = 64

// recentKeys remembers the last delivery keys sent to one connection.
type recentKeys struct {
	mu   sync.Mutex
	ring [recentKeyCap]string
	next int
	set  map[string]struct{}
}

// add records key and reports whether it was new.
func (r *recentKeys) add(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.set == nil {
		r.set = make(map[string]struct{}, recentKeyCap)
	}
	if _, ok := r.set[key]; ok {
		return false
	}
	if old := r.ring[r.next]; old != "" {
		delete(r.set, old)
	}
	r.ring[r.next] = key
	r.next = (r.next + 1) % recentKeyCap
	r.set[key] = struct{}{}
	return true
}

func newConnection(id string, input ws.ConnectInput, uc *implUseCase) *connection {
	c := &connection{
		id:        id,
		userID:    input.UserID,
		metadata:  input.Metadata,
		transport: input.Transport,
		queue:     newQueue(uc.cfg.QueueMax, uc.cfg.QueueDropThreshold),
		uc:        uc,
		topics:    make(map[string]struct{}),
		done:      make(chan struct{}),
	}
	c.touch()
	return c
}

func (c *connection) touch() {
	c.lastSeen.Store(c.uc.now().UnixNano())
}

func (c *connection) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastSeen.Load()))
}

// readPump reads frames until the transport fails. It is the only reader of
// the transport.
func (c *connection) readPump() {
	ctx := context.Background()
	defer c.uc.Disconnect(ctx, c.id)

	c.transport.SetReadLimit(c.uc.cfg.MaxMessageSize)
	_ = c.transport.SetReadDeadline(time.Now().Add(c.uc.cfg.PongWait))
	c.transport.SetPongHandler(func(string) error {
		c.touch()
		return c.transport.SetReadDeadline(time.Now().Add(c.uc.cfg.PongWait))
	})

	for {
		_, data, err := c.transport.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.uc.l.Warnf(ctx, "internal.websocket.usecase.readPump: connection %s user %s: %v", c.id, c.userID, err)
			}
			return
		}
		_ = c.transport.SetReadDeadline(time.Now().Add(c.uc.cfg.PongWait))
		c.uc.handleInbound(ctx, c, data)
	}
}

// writePump is the only writer of the transport. It owns closing it.
func (c *connection) writePump() {
	ctx := context.Background()
	ticker := time.NewTicker(c.uc.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.transport.Close()
	}()

	for {
		select {
		case <-c.queue.ready():
			if !c.flush(ctx) {
				return
			}

		case <-ticker.C:
			_ = c.transport.SetWriteDeadline(time.Now().Add(c.uc.cfg.WriteWait))
			if err := c.transport.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.uc.l.Debugf(ctx, "internal.websocket.usecase.writePump.ping: connection %s: %v", c.id, err)
				c.uc.Disconnect(ctx, c.id)
				return
			}

		case <-c.done:
			c.flush(ctx)
			_ = c.transport.SetWriteDeadline(time.Now().Add(c.uc.cfg.WriteWait))
			_ = c.transport.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes everything queued. It reports false after a write failure,
// in which case the connection has been disconnected.
func (c *connection) flush(ctx context.Context) bool {
	for _, m := range c.queue.drain() {
		kind := websocket.TextMessage
		if m.binary {
			kind = websocket.BinaryMessage
		}
		_ = c.transport.SetWriteDeadline(time.Now().Add(c.uc.cfg.WriteWait))
		if err := c.transport.WriteMessage(kind, m.data); err != nil {
			c.uc.failed.Add(1)
			c.uc.l.Warnf(ctx, "internal.websocket.usecase.flush: connection %s: %v", c.id, err)
			c.uc.Disconnect(ctx, c.id)
			return false
		}
		c.uc.sent.Add(1)
	}
	return true
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.queue.close()
		close(c.done)
	})
}
