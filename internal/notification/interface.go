package notification

import (
	"context"

	"logstream-srv/internal/alert"
	"logstream-srv/internal/model"
)

// UseCase delivers alerts on the notification channels. It satisfies
// alert.Notifier.
//
//go:generate mockery --name UseCase
type UseCase interface {
	Notify(ctx context.Context, channel model.Channel, input alert.NotifyInput) error
	// Enabled reports whether channel is configured on this node.
	Enabled(channel model.Channel) bool
}
