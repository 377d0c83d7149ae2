package repository

import (
	"context"
	"time"

	"logstream-srv/internal/model"
)

//go:generate mockery --name Repository
type Repository interface {
	ListRules(ctx context.Context, opts ListRulesOptions) ([]model.AlertRule, error)
	UpdateRuleTriggered(ctx context.Context, ruleID string, at time.Time) error
	InsertAlert(ctx context.Context, alert model.Alert) error
	// MarkRead flags an alert owned by userID as read. It reports false when
	// no such unread alert exists.
	MarkRead(ctx context.Context, alertID, userID string) (bool, error)
}
