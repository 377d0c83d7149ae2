package usecase

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"logstream-srv/internal/alert"
	"logstream-srv/internal/model"

	"github.com/google/uuid"
)

func (uc *implUseCase) TriggerAlert(ctx context.Context, rule model.AlertRule, m alert.Match) (model.Alert, error) {
	if rule.ID == "" || rule.ProjectID == "" {
		return model.Alert{}, alert.ErrInvalidInput
	}
	return uc.trigger(ctx, rule, m, uc.now())
}

func (uc *implUseCase) trigger(ctx context.Context, rule model.AlertRule, m alert.Match, now time.Time) (model.Alert, error) {
	prev, hadPrev, ok := uc.tryAcquire(rule, now)
	if !ok {
		return model.Alert{}, alert.ErrInCooldown
	}

	a := buildAlert(rule, m, now)
	if err := uc.repo.InsertAlert(ctx, a); err != nil {
		uc.release(rule.ID, prev, hadPrev)
		uc.l.Errorf(ctx, "internal.alert.usecase.trigger.InsertAlert: rule %s: %v", rule.ID, err)
		return model.Alert{}, fmt.Errorf("persist alert for rule %s: %w", rule.ID, err)
	}

	rule.LastTriggeredAt = &now
	uc.touchCachedRule(rule)
	if err := uc.repo.UpdateRuleTriggered(ctx, rule.ID, now); err != nil {
		uc.l.Warnf(ctx, "internal.alert.usecase.trigger.UpdateRuleTriggered: rule %s: %v", rule.ID, err)
	}

	uc.l.Infof(ctx, "internal.alert.usecase.trigger: rule=%s alert=%s severity=%s", rule.ID, a.ID, a.Severity)
	uc.dispatch(ctx, rule, a)
	return a, nil
}

func buildAlert(rule model.AlertRule, m alert.Match, now time.Time) model.Alert {
	userID := m.Event.UserID
	if userID == "" {
		userID = rule.UserID
	}

	md := map[string]any{
		"ruleId":   rule.ID,
		"ruleName": rule.Name,
		"ruleType": string(rule.Type),
	}
	if m.Event.ID != "" {
		md["eventId"] = m.Event.ID
		md["level"] = string(m.Event.Level)
		md["source"] = m.Event.Source
	}
	maps.Copy(md, m.Metadata)

	return model.Alert{
		ID:           uuid.NewString(),
		UserID:       userID,
		ProjectID:    rule.ProjectID,
		ConnectionID: m.Event.ConnectionID,
		RuleID:       rule.ID,
		Severity:     rule.Severity,
		Message:      m.Message,
		Metadata:     md,
		NotifiedVia:  append([]model.Channel(nil), rule.Channels...),
		CreatedAt:    now.UTC(),
	}
}

// dispatch sends a persisted alert to each of the rule's channels
// concurrently. Failures are logged per channel.
func (uc *implUseCase) dispatch(ctx context.Context, rule model.AlertRule, a model.Alert) {
	if uc.notifier == nil || len(rule.Channels) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cfg.DispatchTimeout)
	defer cancel()

	input := alert.NotifyInput{Rule: rule, Alert: a}
	var wg sync.WaitGroup
	for _, ch := range rule.Channels {
		wg.Add(1)
		go func(ch model.Channel) {
			defer wg.Done()
			if err := uc.notifier.Notify(ctx, ch, input); err != nil {
				uc.l.Errorf(ctx, "internal.alert.usecase.dispatch.Notify: alert=%s channel=%s: %v", a.ID, ch, err)
			}
		}(ch)
	}
	wg.Wait()
}

func (uc *implUseCase) MarkRead(ctx context.Context, alertID, userID string) (bool, error) {
	if alertID == "" || userID == "" {
		return false, alert.ErrInvalidInput
	}
	ok, err := uc.repo.MarkRead(ctx, alertID, userID)
	if err != nil {
		uc.l.Errorf(ctx, "internal.alert.usecase.MarkRead.repo.MarkRead: %v", err)
		return false, err
	}
	return ok, nil
}
