package alert

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid alert input")
	ErrUnknownRuleType    = errors.New("unknown alert rule type")
	ErrInCooldown         = errors.New("alert rule is in cooldown")
	ErrChannelDisabled    = errors.New("notification channel is not configured")
	ErrUnsupportedChannel = errors.New("unsupported notification channel")
)
