package postgres

import (
	"context"
	"database/sql"
	"time"

	"logstream-srv/internal/alert/repository"
	"logstream-srv/internal/model"

	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/friendsofgo/errors"
)

func (r *implRepository) ListRules(ctx context.Context, opts repository.ListRulesOptions) ([]model.AlertRule, error) {
	q := "SELECT " + ruleColumns + " FROM alert_rules WHERE project_id = $1 AND deleted_at IS NULL"
	if opts.EnabledOnly {
		q += " AND enabled = TRUE"
	}
	q += " ORDER BY created_at"

	var rows []ruleRow
	if err := queries.Raw(q, opts.ProjectID).Bind(ctx, r.db, &rows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.l.Errorf(ctx, "internal.alert.repository.postgres.ListRules.Bind: %v", err)
		return nil, errors.Wrapf(err, "list rules for project %s", opts.ProjectID)
	}

	rules := make([]model.AlertRule, 0, len(rows))
	for _, row := range rows {
		rule, err := row.toModel()
		if err != nil {
			r.l.Warnf(ctx, "internal.alert.repository.postgres.ListRules.toModel: %v", err)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (r *implRepository) UpdateRuleTriggered(ctx context.Context, ruleID string, at time.Time) error {
	_, err := queries.Raw(
		"UPDATE alert_rules SET last_triggered_at = $2 WHERE id = $1",
		ruleID, at.UTC(),
	).ExecContext(ctx, r.db)
	if err != nil {
		r.l.Errorf(ctx, "internal.alert.repository.postgres.UpdateRuleTriggered.Exec: %v", err)
		return errors.Wrapf(err, "update rule %s triggered", ruleID)
	}
	return nil
}

func (r *implRepository) InsertAlert(ctx context.Context, alert model.Alert) error {
	args, err := insertAlertArgs(alert)
	if err != nil {
		r.l.Errorf(ctx, "internal.alert.repository.postgres.InsertAlert.insertAlertArgs: %v", err)
		return err
	}
	if _, err := queries.Raw(insertAlertQuery, args...).ExecContext(ctx, r.db); err != nil {
		r.l.Errorf(ctx, "internal.alert.repository.postgres.InsertAlert.Exec: %v", err)
		return errors.Wrap(err, "insert alert")
	}
	return nil
}

func (r *implRepository) MarkRead(ctx context.Context, alertID, userID string) (bool, error) {
	res, err := queries.Raw(
		"UPDATE alerts SET is_read = TRUE WHERE id = $1 AND user_id = $2 AND is_read = FALSE",
		alertID, userID,
	).ExecContext(ctx, r.db)
	if err != nil {
		r.l.Errorf(ctx, "internal.alert.repository.postgres.MarkRead.Exec: %v", err)
		return false, errors.Wrapf(err, "mark alert %s read", alertID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return n > 0, nil
}
