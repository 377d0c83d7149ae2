package nats

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"logstream-srv/internal/websocket"
	pkgLog "logstream-srv/pkg/log"
)

type broker struct {
	conn *nats.Conn
	l    pkgLog.Logger

	wg       sync.WaitGroup
	quit     chan struct{}
	quitOnce sync.Once
}

var _ websocket.Broker = &broker{}

// New returns a fan-out broker over core NATS subjects. The channel name is
// used as the subject.
func New(l pkgLog.Logger, conn *nats.Conn) websocket.Broker {
	return &broker{conn: conn, l: l, quit: make(chan struct{})}
}

func (b *broker) Name() string { return "nats" }

func (b *broker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.conn.Publish(channel, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe delivers messages to handle until ctx is done or Close is called.
func (b *broker) Subscribe(ctx context.Context, channel string, handle func(ctx context.Context, payload []byte)) error {
	select {
	case <-b.quit:
		return websocket.ErrBrokerClosed
	default:
	}
	msgs := make(chan *nats.Msg, 256)
	sub, err := b.conn.ChanSubscribe(channel, msgs)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed {
			b.l.Warnf(ctx, "internal.websocket.delivery.nats.Subscribe.Unsubscribe: %v", err)
		}
	}()

	b.wg.Add(1)
	defer b.wg.Done()

	b.l.Infof(ctx, "internal.websocket.delivery.nats.Subscribe: listening on %s", channel)
	for {
		select {
		case msg := <-msgs:
			handle(ctx, msg.Data)
		case <-ctx.Done():
			return ctx.Err()
		case <-b.quit:
			return websocket.ErrBrokerClosed
		}
	}
}

func (b *broker) Close() error {
	b.quitOnce.Do(func() { close(b.quit) })
	b.wg.Wait()
	return nil
}
