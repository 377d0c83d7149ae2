package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	ws "logstream-srv/internal/websocket"
	"logstream-srv/pkg/compress"
	pkgLog "logstream-srv/pkg/log"
)

var errTransportClosed = errors.New("transport closed")

type writtenMessage struct {
	kind int
	data []byte
}

// fakeTransport is an in-memory ws.Transport.
type fakeTransport struct {
	mu       sync.Mutex
	written  []writtenMessage
	writeErr error

	in        chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan []byte, 64), closed: make(chan struct{})}
}

func (f *fakeTransport) ReadMessage() (int, []byte, error) {
	select {
	case b := <-f.in:
		return websocket.TextMessage, b, nil
	case <-f.closed:
		return 0, nil, errTransportClosed
	}
}

func (f *fakeTransport) WriteMessage(kind int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, writtenMessage{kind: kind, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeTransport) SetReadDeadline(time.Time) error      { return nil }
func (f *fakeTransport) SetWriteDeadline(time.Time) error     { return nil }
func (f *fakeTransport) SetReadLimit(int64)                   {}
func (f *fakeTransport) SetPongHandler(func(string) error)    {}
func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeTransport) send(t *testing.T, v any) {
	t.Helper()
	b, ok := v.(string)
	if ok {
		f.in <- []byte(b)
		return
	}
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	f.in <- raw
}

type testFrame struct {
	Type    ws.MessageType  `json:"type"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// frames decodes every data frame written so far.
func (f *fakeTransport) frames() []testFrame {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []testFrame
	for _, m := range f.written {
		data := m.data
		switch m.kind {
		case websocket.TextMessage:
		case websocket.BinaryMessage:
			var err error
			if data, err = compress.Decode(data); err != nil {
				continue
			}
		default:
			continue
		}
		var tf testFrame
		if json.Unmarshal(data, &tf) == nil {
			out = append(out, tf)
		}
	}
	return out
}

func (f *fakeTransport) framesOf(t ws.MessageType) []testFrame {
	var out []testFrame
	for _, fr := range f.frames() {
		if fr.Type == t {
			out = append(out, fr)
		}
	}
	return out
}

func (f *fakeTransport) countOf(t ws.MessageType) int {
	return len(f.framesOf(t))
}

func testConfig() Config {
	return Config{
		NodeID:             "node-a",
		PingInterval:       time.Hour,
		PongWait:           2 * time.Hour,
		WriteWait:          time.Second,
		QueueMax:           64,
		QueueDropThreshold: 64,
		HeartbeatTimeout:   time.Minute,
		ReapInterval:       time.Hour,
	}
}

func newTestUseCase(t *testing.T, cfg Config, deps Dependencies) *implUseCase {
	t.Helper()
	uc := newUseCase(pkgLog.NewNop(), cfg, deps)
	t.Cleanup(func() { _ = uc.Shutdown(context.Background()) })
	return uc
}

func connect(t *testing.T, uc *implUseCase, userID string) (string, *fakeTransport) {
	t.Helper()
	tr := newFakeTransport()
	id, err := uc.Connect(context.Background(), ws.ConnectInput{Transport: tr, UserID: userID})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return tr.countOf(ws.MessageTypeConnectionEstablished) == 1
	}, time.Second, 5*time.Millisecond)
	return id, tr
}

// memoryBus connects several fake brokers in one process.
type memoryBus struct {
	mu   sync.Mutex
	subs map[int]func(context.Context, []byte)
	next int
}

func newMemoryBus() *memoryBus {
	return &memoryBus{subs: make(map[int]func(context.Context, []byte))}
}

func (b *memoryBus) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

type busBroker struct {
	bus *memoryBus
}

func (bb *busBroker) Name() string { return "memory" }
func (bb *busBroker) Close() error { return nil }

func (bb *busBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	bb.bus.mu.Lock()
	handlers := make([]func(context.Context, []byte), 0, len(bb.bus.subs))
	for _, h := range bb.bus.subs {
		handlers = append(handlers, h)
	}
	bb.bus.mu.Unlock()

	for _, h := range handlers {
		h(ctx, payload)
	}
	return nil
}

func (bb *busBroker) Subscribe(ctx context.Context, channel string, handle func(context.Context, []byte)) error {
	bb.bus.mu.Lock()
	id := bb.bus.next
	bb.bus.next++
	bb.bus.subs[id] = handle
	bb.bus.mu.Unlock()

	<-ctx.Done()

	bb.bus.mu.Lock()
	delete(bb.bus.subs, id)
	bb.bus.mu.Unlock()
	return ctx.Err()
}
