package repository

import (
	"time"

	"logstream-srv/internal/model"
)

// ListOptions filters connections. Zero values match everything.
type ListOptions struct {
	ProjectID string
	Statuses  []model.ConnectionStatus
}

// UpdateStatusOptions updates the lifecycle columns of one connection.
// LastSyncAt and LastError are left untouched when nil.
type UpdateStatusOptions struct {
	ID         string
	Status     model.ConnectionStatus
	LastSyncAt *time.Time
	LastError  *string
}
