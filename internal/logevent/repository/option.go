package repository

import (
	"time"

	"logstream-srv/internal/model"
)

// BulkResult reports how many rows of a batch were stored.
type BulkResult struct {
	Stored int
	Failed int
}

// CountOptions selects events by project, level and time range [From, To).
type CountOptions struct {
	ProjectID string
	Levels    []model.Level
	From      time.Time
	To        time.Time
}

// ListOptions selects events for one connection, newest first.
type ListOptions struct {
	ConnectionID string
	IDs          []string
	Limit        int
}
