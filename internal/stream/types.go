package stream

import "time"

// Status is the in-memory state of a polling loop.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusError    Status = "error"
	StatusStopping Status = "stopping"
)

// Runtime is a snapshot of one polling loop.
type Runtime struct {
	ConnectionID string     `json:"connection_id"`
	ProjectID    string     `json:"project_id"`
	UserID       string     `json:"user_id"`
	Provider     string     `json:"provider"`
	Status       Status     `json:"status"`
	ErrorCount   int        `json:"error_count"`
	LastError    string     `json:"last_error,omitempty"`
	LastSync     *time.Time `json:"last_sync,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	Batches      int64      `json:"batches"`
	Processed    int64      `json:"processed"`
}

const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthIdle     = "idle"
)

// Health aggregates the runtimes of this node.
type Health struct {
	TotalStreams   int    `json:"totalStreams"`
	RunningStreams int    `json:"runningStreams"`
	PausedStreams  int    `json:"pausedStreams"`
	ErrorStreams   int    `json:"errorStreams"`
	Status         string `json:"status"`
}
