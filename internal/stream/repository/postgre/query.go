package postgres

import (
	"encoding/json"
	"fmt"
	"strings"

	"logstream-srv/internal/model"
	"logstream-srv/internal/stream/repository"

	"github.com/aarondl/null/v8"
	"github.com/lib/pq"
)

const connectionColumns = `id, project_id, user_id, name, provider, config, credentials,
	status, last_sync_at, last_error, created_at, updated_at, deleted_at`

// connectionRow mirrors one row of the connections table.
type connectionRow struct {
	ID          string      `boil:"id"`
	ProjectID   string      `boil:"project_id"`
	UserID      string      `boil:"user_id"`
	Name        string      `boil:"name"`
	Provider    string      `boil:"provider"`
	Config      null.JSON   `boil:"config"`
	Credentials null.String `boil:"credentials"`
	Status      string      `boil:"status"`
	LastSyncAt  null.Time   `boil:"last_sync_at"`
	LastError   null.String `boil:"last_error"`
	CreatedAt   null.Time   `boil:"created_at"`
	UpdatedAt   null.Time   `boil:"updated_at"`
	DeletedAt   null.Time   `boil:"deleted_at"`
}

func (r connectionRow) toModel() (model.Connection, error) {
	c := model.Connection{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		UserID:      r.UserID,
		Name:        r.Name,
		Provider:    r.Provider,
		Credentials: r.Credentials.String,
		Status:      model.ConnectionStatus(r.Status),
		LastError:   r.LastError.String,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
	if r.Config.Valid && len(r.Config.JSON) > 0 {
		if err := json.Unmarshal(r.Config.JSON, &c.Config); err != nil {
			return model.Connection{}, fmt.Errorf("connection %s config: %w", r.ID, err)
		}
	}
	if r.LastSyncAt.Valid {
		t := r.LastSyncAt.Time.UTC()
		c.LastSyncAt = &t
	}
	if r.DeletedAt.Valid {
		t := r.DeletedAt.Time
		c.DeletedAt = &t
	}
	return c, nil
}

func buildListQuery(opts repository.ListOptions) (string, []interface{}) {
	where := []string{"deleted_at IS NULL"}
	var args []interface{}

	if opts.ProjectID != "" {
		args = append(args, opts.ProjectID)
		where = append(where, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if len(opts.Statuses) > 0 {
		statuses := make([]string, len(opts.Statuses))
		for i, s := range opts.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	q := "SELECT " + connectionColumns + " FROM connections WHERE " +
		strings.Join(where, " AND ") + " ORDER BY created_at"
	return q, args
}

func buildUpdateStatusQuery(opts repository.UpdateStatusOptions, now interface{}) (string, []interface{}) {
	args := []interface{}{opts.ID, string(opts.Status), now}
	set := []string{"status = $2", "updated_at = $3"}

	if opts.LastSyncAt != nil {
		args = append(args, opts.LastSyncAt.UTC())
		set = append(set, fmt.Sprintf("last_sync_at = $%d", len(args)))
	}
	if opts.LastError != nil {
		args = append(args, null.NewString(*opts.LastError, *opts.LastError != ""))
		set = append(set, fmt.Sprintf("last_error = $%d", len(args)))
	}

	q := "UPDATE connections SET " + strings.Join(set, ", ") +
		" WHERE id = $1 AND deleted_at IS NULL"
	return q, args
}
