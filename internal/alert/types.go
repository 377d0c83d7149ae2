package alert

import "logstream-srv/internal/model"

// CheckBatchInput is one normalized batch of a project.
type CheckBatchInput struct {
	ProjectID string
	Events    []model.LogEvent
}

// Match describes why a rule fired.
type Match struct {
	Event    model.LogEvent
	Message  string
	Metadata map[string]any
}

// NotifyInput is what a channel needs to deliver an alert.
type NotifyInput struct {
	Rule  model.AlertRule
	Alert model.Alert
}
