package notification

import "time"

// WebhookPayload is the JSON body POSTed to a rule's webhook URL.
type WebhookPayload struct {
	AlertID   string         `json:"alert_id"`
	RuleID    string         `json:"rule_id"`
	RuleName  string         `json:"rule_name"`
	ProjectID string         `json:"project_id"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
