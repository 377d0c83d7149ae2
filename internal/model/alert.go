package model

import "time"

// AlertType is the closed set of rule kinds.
type AlertType string

const (
	AlertTypeErrorRate    AlertType = "error_rate"
	AlertTypePatternMatch AlertType = "pattern_match"
	AlertTypeLogLevel     AlertType = "log_level"
	AlertTypeKeyword      AlertType = "keyword"
	AlertTypeAnomaly      AlertType = "anomaly"
)

// Severity of an alert rule and the alerts it produces.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Channel is a notification delivery channel.
type Channel string

const (
	ChannelInApp   Channel = "in_app"
	ChannelEmail   Channel = "email"
	ChannelWebhook Channel = "webhook"
	ChannelDiscord Channel = "discord"
)

// AlertConditions holds the type-specific rule parameters. Only the fields
// relevant to the rule's type are read.
type AlertConditions struct {
	// error_rate, anomaly
	Threshold     int `json:"threshold,omitempty"`
	WindowMinutes int `json:"window_minutes,omitempty"`

	// pattern_match
	Pattern       string `json:"pattern,omitempty"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`

	// log_level
	Levels []Level `json:"levels,omitempty"`

	// keyword
	Keywords []string `json:"keywords,omitempty"`

	// anomaly
	BaselineWindows int     `json:"baseline_windows,omitempty"`
	Multiplier      float64 `json:"multiplier,omitempty"`
	MinEvents       int     `json:"min_events,omitempty"`
}

// AlertTargets holds per-rule channel destinations.
type AlertTargets struct {
	Emails            []string `json:"emails,omitempty"`
	WebhookURL        string   `json:"webhook_url,omitempty"`
	DiscordWebhookURL string   `json:"discord_webhook_url,omitempty"`
}

// AlertRule is a project-scoped rule evaluated against every ingested event.
type AlertRule struct {
	ID              string          `json:"id"`
	ProjectID       string          `json:"project_id"`
	UserID          string          `json:"user_id"`
	Name            string          `json:"name"`
	Type            AlertType       `json:"type"`
	Severity        Severity        `json:"severity"`
	Enabled         bool            `json:"enabled"`
	Conditions      AlertConditions `json:"conditions"`
	Targets         AlertTargets    `json:"targets"`
	CooldownMinutes int             `json:"cooldown_minutes"`
	Channels        []Channel       `json:"channels"`
	LastTriggeredAt *time.Time      `json:"last_triggered_at,omitempty"`
}

// Cooldown returns the rule's cooldown as a duration.
func (r AlertRule) Cooldown() time.Duration {
	return time.Duration(r.CooldownMinutes) * time.Minute
}

// Alert is a persisted record of one rule trigger.
type Alert struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	ProjectID    string         `json:"project_id"`
	ConnectionID string         `json:"connection_id,omitempty"`
	RuleID       string         `json:"rule_id"`
	Severity     Severity       `json:"severity"`
	Message      string         `json:"message"`
	Metadata     map[string]any `json:"metadata"`
	IsRead       bool           `json:"is_read"`
	NotifiedVia  []Channel      `json:"notified_via"`
	CreatedAt    time.Time      `json:"created_at"`
}
