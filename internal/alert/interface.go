package alert

import (
	"context"

	logeventRepo "logstream-srv/internal/logevent/repository"
	"logstream-srv/internal/model"
)

// UseCase is the alert engine.
//
//go:generate mockery --name UseCase
type UseCase interface {
	// GetRules returns the enabled rules of a project, cached for the
	// configured TTL.
	GetRules(ctx context.Context, projectID string) ([]model.AlertRule, error)
	// InvalidateRules drops the cached rules of a project.
	InvalidateRules(projectID string)
	// CheckBatch fetches the project's rules once and checks every event
	// against them. It returns the alerts that were created.
	CheckBatch(ctx context.Context, input CheckBatchInput) ([]model.Alert, error)
	// CheckLog checks one event against rules.
	CheckLog(ctx context.Context, event model.LogEvent, rules []model.AlertRule) ([]model.Alert, error)
	// TriggerAlert persists an alert for rule and dispatches it to the
	// rule's channels.
	TriggerAlert(ctx context.Context, rule model.AlertRule, m Match) (model.Alert, error)
	MarkRead(ctx context.Context, alertID, userID string) (bool, error)
}

// Notifier delivers a persisted alert on one channel.
type Notifier interface {
	Notify(ctx context.Context, channel model.Channel, input NotifyInput) error
}

// EventCounter counts persisted events. The log event repository
// satisfies it.
type EventCounter interface {
	CountEvents(ctx context.Context, opts logeventRepo.CountOptions) (int, error)
}
