package usecase

import (
	"context"
	"fmt"

	"logstream-srv/internal/alert/repository"
	"logstream-srv/internal/model"
)

func (uc *implUseCase) GetRules(ctx context.Context, projectID string) ([]model.AlertRule, error) {
	now := uc.now()

	uc.rulesMu.Lock()
	entry, ok := uc.rules[projectID]
	uc.rulesMu.Unlock()
	if ok && now.Before(entry.expires) {
		return entry.rules, nil
	}

	v, err, _ := uc.loads.Do(projectID, func() (interface{}, error) {
		rules, err := uc.repo.ListRules(ctx, repository.ListRulesOptions{
			ProjectID:   projectID,
			EnabledOnly: true,
		})
		if err != nil {
			return nil, err
		}
		uc.rulesMu.Lock()
		uc.rules[projectID] = ruleCacheEntry{rules: rules, expires: uc.now().Add(uc.cfg.RuleCacheTTL)}
		uc.rulesMu.Unlock()
		return rules, nil
	})
	if err != nil {
		uc.l.Errorf(ctx, "internal.alert.usecase.GetRules.ListRules: %v", err)
		return nil, fmt.Errorf("load rules for project %s: %w", projectID, err)
	}
	return v.([]model.AlertRule), nil
}

func (uc *implUseCase) InvalidateRules(projectID string) {
	uc.rulesMu.Lock()
	delete(uc.rules, projectID)
	uc.rulesMu.Unlock()
}

// touchCachedRule records a trigger time on the cached copy of a rule so
// later cache hits carry it.
func (uc *implUseCase) touchCachedRule(rule model.AlertRule) {
	uc.rulesMu.Lock()
	defer uc.rulesMu.Unlock()

	entry, ok := uc.rules[rule.ProjectID]
	if !ok {
		return
	}
	updated := make([]model.AlertRule, len(entry.rules))
	copy(updated, entry.rules)
	for i := range updated {
		if updated[i].ID == rule.ID {
			updated[i].LastTriggeredAt = rule.LastTriggeredAt
		}
	}
	entry.rules = updated
	uc.rules[rule.ProjectID] = entry
}
