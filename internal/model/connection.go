package model

import "time"

// ConnectionStatus is the persisted lifecycle state of a Connection.
type ConnectionStatus string

const (
	ConnectionStatusActive ConnectionStatus = "active"
	ConnectionStatusPaused ConnectionStatus = "paused"
	ConnectionStatusError  ConnectionStatus = "error"
)

// Connection is a user-owned link to one external log source.
// Credentials holds the AES-GCM sealed secret map; Config holds the
// non-secret provider settings.
type Connection struct {
	ID          string            `json:"id"`
	ProjectID   string            `json:"project_id"`
	UserID      string            `json:"user_id"`
	Name        string            `json:"name"`
	Provider    string            `json:"provider"`
	Config      map[string]string `json:"config,omitempty"`
	Credentials string            `json:"-"`
	Status      ConnectionStatus  `json:"status"`
	LastSyncAt  *time.Time        `json:"last_sync_at,omitempty"`
	LastError   string            `json:"last_error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   *time.Time        `json:"deleted_at,omitempty"`
}
