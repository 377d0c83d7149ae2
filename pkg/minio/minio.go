package minio

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
)

func (m *implMinIO) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.client.ListBuckets(ctx); err != nil {
		m.connected = false
		return handleMinIOError(err, "connect")
	}
	m.connected = true
	return nil
}

func (m *implMinIO) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return NewConnectionError(fmt.Errorf("not connected"))
	}
	if _, err := m.client.ListBuckets(ctx); err != nil {
		return handleMinIOError(err, "health_check")
	}
	return nil
}

// Close marks the client disconnected. minio-go manages its own pool.
func (m *implMinIO) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = false
	return nil
}

func (m *implMinIO) EnsureBucket(ctx context.Context, bucket string) error {
	if err := validateBucketName(bucket); err != nil {
		return err
	}

	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return handleMinIOError(err, "check_bucket_exists")
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		// Another replica may have created it in between.
		if resp := minio.ToErrorResponse(err); resp.Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return handleMinIOError(err, "create_bucket")
	}
	return nil
}

func (m *implMinIO) PutObject(ctx context.Context, req PutRequest) (*ObjectInfo, error) {
	if req.Bucket == "" || req.Object == "" {
		return nil, NewInvalidInputError("bucket and object are required")
	}
	if req.Reader == nil {
		return nil, NewInvalidInputError("reader is required")
	}
	if strings.HasPrefix(req.Object, "/") {
		return nil, NewInvalidInputError("object name cannot start with '/'")
	}

	opts := minio.PutObjectOptions{
		ContentType:     req.ContentType,
		ContentEncoding: req.ContentEncoding,
		UserMetadata:    req.Metadata,
	}
	info, err := m.client.PutObject(ctx, req.Bucket, req.Object, req.Reader, req.Size, opts)
	if err != nil {
		return nil, handleMinIOError(err, "put_object")
	}

	return &ObjectInfo{
		Bucket: req.Bucket,
		Object: req.Object,
		Size:   info.Size,
		ETag:   info.ETag,
	}, nil
}
