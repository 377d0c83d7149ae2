package nats

import (
	"fmt"
	"sync"

	"logstream-srv/config"

	"github.com/nats-io/nats.go"
)

var (
	conn *nats.Conn
	mu   sync.Mutex
)

// Connect opens a NATS connection with automatic reconnects.
func Connect(cfg config.NATSConfig) (*nats.Conn, error) {
	mu.Lock()
	defer mu.Unlock()

	if conn != nil && !conn.IsClosed() {
		return conn, nil
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS %s: %w", cfg.URL, err)
	}
	conn = nc
	return conn, nil
}

// Disconnect drains and closes the NATS connection.
func Disconnect() error {
	mu.Lock()
	defer mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Drain()
	conn = nil
	return err
}
