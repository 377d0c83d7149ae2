package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"logstream-srv/internal/websocket"
)

func (b *broker) Name() string { return "redis" }

func (b *broker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe listens on channel until ctx is done, Close is called or the
// subscription breaks.
func (b *broker) Subscribe(ctx context.Context, channel string, handle func(ctx context.Context, payload []byte)) error {
	select {
	case <-b.quit:
		return websocket.ErrBrokerClosed
	default:
	}
	pubsub := b.client.Subscribe(ctx, channel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			b.l.Warnf(ctx, "internal.websocket.delivery.redis.Subscribe.Close: %v", err)
		}
	}()

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	b.wg.Add(1)
	defer b.wg.Done()

	b.l.Infof(ctx, "internal.websocket.delivery.redis.Subscribe: listening on %s", channel)
	return b.listen(ctx, pubsub.Channel(), handle)
}

func (b *broker) listen(ctx context.Context, ch <-chan *redis.Message, handle func(context.Context, []byte)) error {
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				b.l.Warnf(ctx, "internal.websocket.delivery.redis.listen: pubsub channel closed")
				return fmt.Errorf("redis pubsub channel closed")
			}
			handle(ctx, []byte(msg.Payload))
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
