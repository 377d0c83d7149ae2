package processor

import (
	"logstream-srv/internal/model"
	"logstream-srv/internal/source"
)

// ProcessInput is one fetched batch of a connection.
type ProcessInput struct {
	Connection model.Connection
	Events     []source.RawEvent
}

type ProcessResult struct {
	Processed int
	Failed    int
	// Events are the normalized events of the batch.
	Events []model.LogEvent
}

// Stats are cumulative counters since start.
type Stats struct {
	Batches      int64 `json:"batches"`
	Processed    int64 `json:"processed"`
	Failed       int64 `json:"failed"`
	FanoutErrors int64 `json:"fanout_errors"`
	InFlight     int64 `json:"in_flight"`
}
