// Package archive stores the raw payloads of processed batches.
package archive

import (
	"context"
	"time"

	"logstream-srv/internal/model"
)

// BatchInput is one processed batch of a connection.
type BatchInput struct {
	ProjectID    string
	ConnectionID string
	Events       []model.LogEvent
	At           time.Time
}

// Archiver writes a batch to long-term storage.
type Archiver interface {
	ArchiveBatch(ctx context.Context, input BatchInput) error
}
