package usecase

import (
	"context"
	"errors"

	"logstream-srv/internal/alert"
	"logstream-srv/internal/model"
)

func (uc *implUseCase) CheckBatch(ctx context.Context, input alert.CheckBatchInput) ([]model.Alert, error) {
	if len(input.Events) == 0 {
		return nil, nil
	}
	if input.ProjectID == "" {
		return nil, alert.ErrInvalidInput
	}

	rules, err := uc.GetRules(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}
	return uc.check(ctx, newEvalScope(uc.now()), input.Events, rules)
}

func (uc *implUseCase) CheckLog(ctx context.Context, event model.LogEvent, rules []model.AlertRule) ([]model.Alert, error) {
	return uc.check(ctx, newEvalScope(uc.now()), []model.LogEvent{event}, rules)
}

// check evaluates every event against every rule. A rule fires at most once
// per call, and a rule in cooldown is not evaluated at all.
func (uc *implUseCase) check(ctx context.Context, sc *evalScope, events []model.LogEvent, rules []model.AlertRule) ([]model.Alert, error) {
	var (
		alerts []model.Alert
		errs   []error
		done   = make(map[string]bool, len(rules))
	)

	for _, ev := range events {
		for _, rule := range rules {
			if !rule.Enabled || done[rule.ID] {
				continue
			}
			if uc.inCooldown(rule, sc.now) {
				done[rule.ID] = true
				continue
			}

			eval, ok := uc.evaluators[rule.Type]
			if !ok {
				uc.l.Warnf(ctx, "internal.alert.usecase.check: rule %s: %v %q", rule.ID, alert.ErrUnknownRuleType, rule.Type)
				done[rule.ID] = true
				continue
			}

			m, matched, err := eval.evaluate(ctx, sc, rule, ev)
			if err != nil {
				uc.l.Warnf(ctx, "internal.alert.usecase.check.evaluate: rule %s: %v", rule.ID, err)
				done[rule.ID] = true
				continue
			}
			if !matched {
				continue
			}

			done[rule.ID] = true
			a, err := uc.trigger(ctx, rule, m, sc.now)
			if err != nil {
				if !errors.Is(err, alert.ErrInCooldown) {
					errs = append(errs, err)
				}
				continue
			}
			alerts = append(alerts, a)
		}
	}
	return alerts, errors.Join(errs...)
}
