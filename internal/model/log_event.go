package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Level is the canonical log severity.
type Level string

const (
	LevelDebug    Level = "DEBUG"
	LevelInfo     Level = "INFO"
	LevelWarn     Level = "WARN"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

var levelAliases = map[string]Level{
	"debug":       LevelDebug,
	"trace":       LevelDebug,
	"verbose":     LevelDebug,
	"info":        LevelInfo,
	"information": LevelInfo,
	"notice":      LevelInfo,
	"default":     LevelInfo,
	"warn":        LevelWarn,
	"warning":     LevelWarn,
	"error":       LevelError,
	"err":         LevelError,
	"critical":    LevelCritical,
	"crit":        LevelCritical,
	"fatal":       LevelCritical,
	"panic":       LevelCritical,
	"alert":       LevelCritical,
	"emergency":   LevelCritical,
	"emerg":       LevelCritical,
}

// ParseLevel maps a provider level string to the canonical enum.
// Matching is case-insensitive; anything unrecognized is INFO.
func ParseLevel(s string) Level {
	if l, ok := levelAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l
	}
	return LevelInfo
}

// IsImportant reports whether events of this level are forwarded for indexing.
func (l Level) IsImportant() bool {
	return l == LevelWarn || l == LevelError || l == LevelCritical
}

// IsError reports whether the level counts towards error rates.
func (l Level) IsError() bool {
	return l == LevelError || l == LevelCritical
}

// LogEvent is a normalized log entry. It is immutable once created.
type LogEvent struct {
	ID           string          `json:"id"`
	ProjectID    string          `json:"project_id"`
	UserID       string          `json:"user_id"`
	ConnectionID string          `json:"connection_id"`
	Timestamp    time.Time       `json:"timestamp"`
	Level        Level           `json:"level"`
	Message      string          `json:"message"`
	Source       string          `json:"source"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RawText is the raw payload as text, used for pattern and keyword search.
func (e LogEvent) RawText() string {
	return string(e.Raw)
}
