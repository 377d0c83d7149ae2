package http

import (
	"sort"
	"strings"
	"time"

	"logstream-srv/internal/processor"
	"logstream-srv/internal/stream"
	"logstream-srv/pkg/paginator"
)

// --- Request DTOs ---

type idReq struct {
	ID string `uri:"id"`
}

func (r idReq) validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errWrongBody
	}
	return nil
}

// --- Response DTOs ---

type streamResp struct {
	ConnectionID string     `json:"connection_id"`
	ProjectID    string     `json:"project_id"`
	UserID       string     `json:"user_id"`
	Provider     string     `json:"provider"`
	Status       string     `json:"status"`
	ErrorCount   int        `json:"error_count"`
	LastError    string     `json:"last_error,omitempty"`
	LastSync     *time.Time `json:"last_sync,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	Batches      int64      `json:"batches"`
	Processed    int64      `json:"processed"`
}

func newStreamResp(r stream.Runtime) streamResp {
	return streamResp{
		ConnectionID: r.ConnectionID,
		ProjectID:    r.ProjectID,
		UserID:       r.UserID,
		Provider:     r.Provider,
		Status:       string(r.Status),
		ErrorCount:   r.ErrorCount,
		LastError:    r.LastError,
		LastSync:     r.LastSync,
		StartedAt:    r.StartedAt,
		Batches:      r.Batches,
		Processed:    r.Processed,
	}
}

type listResp struct {
	Streams   []streamResp        `json:"streams"`
	Paginator paginator.Paginator `json:"paginator"`
}

// newListResp orders runtimes by connection id so pages are stable.
func newListResp(rs []stream.Runtime, q paginator.Query) listResp {
	sort.Slice(rs, func(i, j int) bool { return rs[i].ConnectionID < rs[j].ConnectionID })
	page, p := paginator.Page(rs, q)

	out := listResp{Streams: make([]streamResp, 0, len(page)), Paginator: p}
	for _, r := range page {
		out.Streams = append(out.Streams, newStreamResp(r))
	}
	return out
}

type actionResp struct {
	ConnectionID string `json:"connection_id"`
	Action       string `json:"action"`
}

type statsResp struct {
	Batches      int64 `json:"batches"`
	Processed    int64 `json:"processed"`
	Failed       int64 `json:"failed"`
	FanoutErrors int64 `json:"fanout_errors"`
	InFlight     int64 `json:"in_flight"`
}

func newStatsResp(s processor.Stats) statsResp {
	return statsResp{
		Batches:      s.Batches,
		Processed:    s.Processed,
		Failed:       s.Failed,
		FanoutErrors: s.FanoutErrors,
		InFlight:     s.InFlight,
	}
}
