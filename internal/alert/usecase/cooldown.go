package usecase

import (
	"time"

	"logstream-srv/internal/model"
)

// lastTriggered is the later of the in-process trigger time and the one
// loaded with the rule.
func (uc *implUseCase) lastTriggered(rule model.AlertRule) (time.Time, bool) {
	last, ok := uc.lastFired[rule.ID]
	if rule.LastTriggeredAt != nil && rule.LastTriggeredAt.After(last) {
		return *rule.LastTriggeredAt, true
	}
	return last, ok
}

func (uc *implUseCase) inCooldown(rule model.AlertRule, now time.Time) bool {
	uc.cooldownMu.Lock()
	defer uc.cooldownMu.Unlock()
	return uc.inCooldownLocked(rule, now)
}

func (uc *implUseCase) inCooldownLocked(rule model.AlertRule, now time.Time) bool {
	last, ok := uc.lastTriggered(rule)
	if !ok {
		return false
	}
	return now.Before(last.Add(rule.Cooldown()))
}

// tryAcquire claims a trigger slot for rule at now. It returns the previous
// in-process trigger time so a failed trigger can be rolled back.
func (uc *implUseCase) tryAcquire(rule model.AlertRule, now time.Time) (prev time.Time, hadPrev bool, ok bool) {
	uc.cooldownMu.Lock()
	defer uc.cooldownMu.Unlock()

	if uc.inCooldownLocked(rule, now) {
		return time.Time{}, false, false
	}
	prev, hadPrev = uc.lastFired[rule.ID]
	uc.lastFired[rule.ID] = now
	return prev, hadPrev, true
}

func (uc *implUseCase) release(ruleID string, prev time.Time, hadPrev bool) {
	uc.cooldownMu.Lock()
	defer uc.cooldownMu.Unlock()
	if hadPrev {
		uc.lastFired[ruleID] = prev
		return
	}
	delete(uc.lastFired, ruleID)
}
