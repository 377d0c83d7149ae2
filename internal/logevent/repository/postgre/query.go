package postgres

import (
	"encoding/json"
	"fmt"
	"strings"

	"logstream-srv/internal/logevent/repository"
	"logstream-srv/internal/model"

	"github.com/aarondl/null/v8"
	"github.com/lib/pq"
)

const (
	logEventColumns = `id, project_id, user_id, connection_id, timestamp, level, message,
	source, metadata, raw, created_at`

	insertLogEventQuery = `INSERT INTO log_events (` + logEventColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	defaultListLimit = 100
	maxListLimit     = 1000
)

// logEventRow mirrors one row of the log_events table.
type logEventRow struct {
	ID           string    `boil:"id"`
	ProjectID    string    `boil:"project_id"`
	UserID       string    `boil:"user_id"`
	ConnectionID string    `boil:"connection_id"`
	Timestamp    null.Time `boil:"timestamp"`
	Level        string    `boil:"level"`
	Message      string    `boil:"message"`
	Source       string    `boil:"source"`
	Metadata     null.JSON `boil:"metadata"`
	Raw          null.JSON `boil:"raw"`
	CreatedAt    null.Time `boil:"created_at"`
}

func insertArgs(e model.LogEvent) ([]interface{}, error) {
	var md null.JSON
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("metadata: %w", err)
		}
		md = null.JSONFrom(b)
	}
	var raw null.JSON
	if len(e.Raw) > 0 && json.Valid(e.Raw) {
		raw = null.JSONFrom(e.Raw)
	}
	return []interface{}{
		e.ID, e.ProjectID, e.UserID, e.ConnectionID, e.Timestamp.UTC(),
		string(e.Level), e.Message, e.Source, md, raw, e.CreatedAt.UTC(),
	}, nil
}

func (r logEventRow) toModel() model.LogEvent {
	e := model.LogEvent{
		ID:           r.ID,
		ProjectID:    r.ProjectID,
		UserID:       r.UserID,
		ConnectionID: r.ConnectionID,
		Timestamp:    r.Timestamp.Time.UTC(),
		Level:        model.ParseLevel(r.Level),
		Message:      r.Message,
		Source:       r.Source,
		CreatedAt:    r.CreatedAt.Time.UTC(),
	}
	if r.Metadata.Valid {
		_ = json.Unmarshal(r.Metadata.JSON, &e.Metadata)
	}
	if r.Raw.Valid {
		e.Raw = json.RawMessage(r.Raw.JSON)
	}
	return e
}

func buildCountQuery(opts repository.CountOptions) (string, []interface{}) {
	args := []interface{}{opts.ProjectID}
	where := []string{"project_id = $1"}

	if len(opts.Levels) > 0 {
		levels := make([]string, len(opts.Levels))
		for i, l := range opts.Levels {
			levels[i] = string(l)
		}
		args = append(args, pq.Array(levels))
		where = append(where, fmt.Sprintf("level = ANY($%d)", len(args)))
	}
	if !opts.From.IsZero() {
		args = append(args, opts.From.UTC())
		where = append(where, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if !opts.To.IsZero() {
		args = append(args, opts.To.UTC())
		where = append(where, fmt.Sprintf("timestamp < $%d", len(args)))
	}

	return "SELECT COUNT(*) AS count FROM log_events WHERE " + strings.Join(where, " AND "), args
}

func buildListQuery(opts repository.ListOptions) (string, []interface{}) {
	var args []interface{}
	var where []string

	if opts.ConnectionID != "" {
		args = append(args, opts.ConnectionID)
		where = append(where, fmt.Sprintf("connection_id = $%d", len(args)))
	}
	if len(opts.IDs) > 0 {
		args = append(args, pq.Array(opts.IDs))
		where = append(where, fmt.Sprintf("id = ANY($%d)", len(args)))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	q := "SELECT " + logEventColumns + " FROM log_events"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT %d", limit)
	return q, args
}
