package repository

import (
	"context"

	"logstream-srv/internal/model"
)

//go:generate mockery --name Repository
type Repository interface {
	// BulkInsert writes events in one transaction. Rows that fail are
	// skipped and counted; an error is returned only if nothing was stored.
	BulkInsert(ctx context.Context, events []model.LogEvent) (BulkResult, error)
	// CountEvents counts persisted events matching opts.
	CountEvents(ctx context.Context, opts CountOptions) (int, error)
	List(ctx context.Context, opts ListOptions) ([]model.LogEvent, error)
}
