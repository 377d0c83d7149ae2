package redis

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"logstream-srv/internal/websocket"
	pkgLog "logstream-srv/pkg/log"
)

// Client is the subset of go-redis used by the broker.
type Client interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

type broker struct {
	client Client
	l      pkgLog.Logger

	wg       sync.WaitGroup
	quit     chan struct{}
	quitOnce sync.Once
}

var _ websocket.Broker = &broker{}

// New returns a Redis pub/sub fan-out broker.
func New(l pkgLog.Logger, client Client) websocket.Broker {
	return &broker{
		client: client,
		l:      l,
		quit:   make(chan struct{}),
	}
}
