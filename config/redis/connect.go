package redis

import (
	"context"
	"fmt"
	"sync"

	"logstream-srv/config"
	pkgRedis "logstream-srv/pkg/redis"
)

var (
	client *pkgRedis.Client
	mu     sync.Mutex
)

// Connect initializes and returns a Redis client
func Connect(ctx context.Context, cfg config.RedisConfig) (*pkgRedis.Client, error) {
	mu.Lock()
	defer mu.Unlock()

	if client != nil {
		return client, nil
	}

	c, err := pkgRedis.NewClient(ctx, pkgRedis.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Password:        cfg.Password,
		DB:              cfg.DB,
		UseTLS:          cfg.UseTLS,
		MaxRetries:      cfg.MaxRetries,
		MinIdleConns:    cfg.MinIdleConns,
		PoolSize:        cfg.PoolSize,
		PoolTimeout:     cfg.PoolTimeout,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	client = c
	return client, nil
}

// Disconnect closes the Redis connection
func Disconnect() error {
	mu.Lock()
	defer mu.Unlock()

	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}
