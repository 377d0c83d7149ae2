package usecase

import (
	"context"
	"errors"

	"logstream-srv/internal/alert"
	ws "logstream-srv/internal/websocket"
)

// sendInApp pushes an alert frame to the affected user, the rule owner and
// the project topic.
func (uc *implUseCase) sendInApp(ctx context.Context, input alert.NotifyInput) error {
	a := input.Alert
	frame := ws.NewFrame(ws.MessageTypeAlert, ws.AlertData{
		ID:        a.ID,
		RuleID:    input.Rule.ID,
		RuleName:  input.Rule.Name,
		ProjectID: a.ProjectID,
		Severity:  string(a.Severity),
		Message:   a.Message,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt,
	})

	topics := []string{ws.ProjectTopic(a.ProjectID)}
	if a.UserID != "" {
		topics = append(topics, ws.UserTopic(a.UserID))
	}
	if owner := input.Rule.UserID; owner != "" && owner != a.UserID {
		topics = append(topics, ws.UserTopic(owner))
	}

	var errs []error
	for _, topic := range topics {
		if err := uc.deps.Broadcaster.Broadcast(ctx, topic, frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
