package auth

import (
	"context"

	pkgLog "logstream-srv/pkg/log"
)

// PermissiveAuthorizer always allows access.
// It is used when no project membership service is wired in.
type PermissiveAuthorizer struct {
	l pkgLog.Logger
}

// NewPermissiveAuthorizer creates a new PermissiveAuthorizer
func NewPermissiveAuthorizer(l pkgLog.Logger) *PermissiveAuthorizer {
	return &PermissiveAuthorizer{l: l}
}

// CanAccessProject always returns true
func (pa *PermissiveAuthorizer) CanAccessProject(ctx context.Context, userID, projectID string) (bool, error) {
	pa.l.Debugf(ctx, "internal.auth.PermissiveAuthorizer.CanAccessProject: allowing user %s on project %s", userID, projectID)
	return true, nil
}

// CanAccessChat always returns true
func (pa *PermissiveAuthorizer) CanAccessChat(ctx context.Context, userID, chatID string) (bool, error) {
	pa.l.Debugf(ctx, "internal.auth.PermissiveAuthorizer.CanAccessChat: allowing user %s on chat %s", userID, chatID)
	return true, nil
}
