package minio

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	maxIdleConns        = 100
	maxIdleConnsPerHost = 100
	idleConnTimeout     = 90 * time.Second
)

// Config holds the MinIO connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// PutRequest describes one object upload.
type PutRequest struct {
	Bucket          string
	Object          string
	Reader          io.Reader
	Size            int64
	ContentType     string
	ContentEncoding string
	Metadata        map[string]string
}

// ObjectInfo is the result of a successful upload.
type ObjectInfo struct {
	Bucket string
	Object string
	Size   int64
	ETag   string
}

// MinIO defines the storage operations used by the archive.
type MinIO interface {
	// Connect verifies the endpoint is reachable by listing buckets.
	Connect(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	// EnsureBucket creates the bucket when it does not exist yet.
	EnsureBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, req PutRequest) (*ObjectInfo, error)
	Close() error
}

type implMinIO struct {
	client    *minio.Client
	region    string
	mu        sync.RWMutex
	connected bool
}

// New creates a MinIO client. It does not touch the network; call Connect.
func New(cfg Config) (MinIO, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	transport := &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
		DisableCompression:  true,
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, NewConnectionError(err)
	}

	return &implMinIO{client: client, region: cfg.Region}, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Endpoint == "" {
		return NewInvalidInputError("endpoint is required")
	}
	if cfg.AccessKey == "" {
		return NewInvalidInputError("access key is required")
	}
	if cfg.SecretKey == "" {
		return NewInvalidInputError("secret key is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if !strings.Contains(cfg.Endpoint, ":") {
		cfg.Endpoint = cfg.Endpoint + ":9000"
	}
	return nil
}

func validateBucketName(bucket string) error {
	if len(bucket) < 3 || len(bucket) > 63 {
		return NewInvalidInputError("bucket name must be between 3 and 63 characters")
	}
	for _, c := range bucket {
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '.') {
			return NewInvalidInputError("bucket name can only contain lowercase letters, numbers, dots and hyphens")
		}
	}
	if strings.HasPrefix(bucket, "-") || strings.HasSuffix(bucket, "-") {
		return NewInvalidInputError("bucket name cannot start or end with hyphen")
	}
	return nil
}
