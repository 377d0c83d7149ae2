// Package source defines the uniform adapter boundary over external log
// providers and a registry of adapter factories keyed by provider kind.
package source

import (
	"context"
	"encoding/json"
	"time"

	"logstream-srv/internal/model"
)

// RawEvent is one entry as the provider returned it. Either Timestamp or
// TimestampText may be set; normalization resolves whichever is present.
type RawEvent struct {
	Timestamp     time.Time
	TimestampText string
	Level         string
	Message       string
	Source        string
	Metadata      map[string]any
	Raw           json.RawMessage
}

// Adapter is implemented once per provider.
type Adapter interface {
	// TestConnection verifies credentials and reachability.
	TestConnection(ctx context.Context) error
	// FetchSince returns events newer than cursor. A nil cursor means the
	// adapter picks its own initial window.
	FetchSince(ctx context.Context, cursor *time.Time) ([]RawEvent, error)
	Close() error
}

// Factory builds an adapter for a connection. secrets is the decrypted
// credential map.
type Factory func(conn model.Connection, secrets map[string]string) (Adapter, error)
