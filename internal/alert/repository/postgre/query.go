package postgres

import (
	"encoding/json"
	"fmt"

	"logstream-srv/internal/model"

	"github.com/aarondl/null/v8"
	"github.com/lib/pq"
)

const (
	ruleColumns = `id, project_id, user_id, name, type, severity, enabled, conditions,
	targets, cooldown_minutes, channels, last_triggered_at`

	insertAlertQuery = `INSERT INTO alerts (id, user_id, project_id, connection_id, rule_id,
	severity, message, metadata, is_read, notified_via, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
)

// ruleRow mirrors one row of the alert_rules table.
type ruleRow struct {
	ID              string         `boil:"id"`
	ProjectID       string         `boil:"project_id"`
	UserID          string         `boil:"user_id"`
	Name            string         `boil:"name"`
	Type            string         `boil:"type"`
	Severity        string         `boil:"severity"`
	Enabled         bool           `boil:"enabled"`
	Conditions      null.JSON      `boil:"conditions"`
	Targets         null.JSON      `boil:"targets"`
	CooldownMinutes int            `boil:"cooldown_minutes"`
	Channels        pq.StringArray `boil:"channels"`
	LastTriggeredAt null.Time      `boil:"last_triggered_at"`
}

func (r ruleRow) toModel() (model.AlertRule, error) {
	rule := model.AlertRule{
		ID:              r.ID,
		ProjectID:       r.ProjectID,
		UserID:          r.UserID,
		Name:            r.Name,
		Type:            model.AlertType(r.Type),
		Severity:        model.Severity(r.Severity),
		Enabled:         r.Enabled,
		CooldownMinutes: r.CooldownMinutes,
	}
	if r.Conditions.Valid {
		if err := json.Unmarshal(r.Conditions.JSON, &rule.Conditions); err != nil {
			return model.AlertRule{}, fmt.Errorf("rule %s conditions: %w", r.ID, err)
		}
	}
	if r.Targets.Valid {
		if err := json.Unmarshal(r.Targets.JSON, &rule.Targets); err != nil {
			return model.AlertRule{}, fmt.Errorf("rule %s targets: %w", r.ID, err)
		}
	}
	for _, c := range r.Channels {
		rule.Channels = append(rule.Channels, model.Channel(c))
	}
	if r.LastTriggeredAt.Valid {
		t := r.LastTriggeredAt.Time.UTC()
		rule.LastTriggeredAt = &t
	}
	return rule, nil
}

func insertAlertArgs(a model.Alert) ([]interface{}, error) {
	md, err := json.Marshal(a.Metadata)
	if err != nil {
		return nil, fmt.Errorf("alert metadata: %w", err)
	}
	via := make([]string, len(a.NotifiedVia))
	for i, c := range a.NotifiedVia {
		via[i] = string(c)
	}
	return []interface{}{
		a.ID, a.UserID, a.ProjectID, null.NewString(a.ConnectionID, a.ConnectionID != ""), a.RuleID,
		string(a.Severity), a.Message, null.JSONFrom(md), a.IsRead, pq.Array(via), a.CreatedAt.UTC(),
	}, nil
}
