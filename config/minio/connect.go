package minio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"logstream-srv/config"
	miniopkg "logstream-srv/pkg/minio"
)

// defaultConnectTimeout is the maximum time to wait for initial connection
const defaultConnectTimeout = 5 * time.Second

var (
	instance miniopkg.MinIO
	mu       sync.RWMutex
)

// Connect creates the MinIO client, verifies connectivity and makes sure the
// archive bucket exists.
func Connect(ctx context.Context, cfg config.MinIOConfig) (miniopkg.MinIO, error) {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance, nil
	}

	impl, err := miniopkg.New(miniopkg.Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Region:    cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	if err := impl.Connect(connectCtx); err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	if err := impl.EnsureBucket(connectCtx, cfg.Bucket); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket %s: %w", cfg.Bucket, err)
	}

	instance = impl
	return instance, nil
}

// Disconnect closes the MinIO client and resets the singleton instance.
func Disconnect() error {
	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		return nil
	}
	err := instance.Close()
	instance = nil
	return err
}
