package stream

import "context"

// UseCase is the stream manager. It owns one polling loop per active
// connection.
//
//go:generate mockery --name UseCase
type UseCase interface {
	// Start is a no-op for a connection that already has a runtime.
	Start(ctx context.Context, connectionID string) error
	Stop(ctx context.Context, connectionID string) error
	Pause(ctx context.Context, connectionID string) error
	Resume(ctx context.Context, connectionID string) error
	// Remove stops the connection and soft-deletes it.
	Remove(ctx context.Context, connectionID string) error

	Status(ctx context.Context, connectionID string) (Runtime, error)
	List(ctx context.Context) []Runtime
	Health(ctx context.Context) Health

	// RestoreActive starts every connection persisted as active.
	RestoreActive(ctx context.Context) (int, error)
	// Shutdown stops every loop and rejects later starts. Persisted
	// statuses are left untouched so RestoreActive picks them up again.
	Shutdown(ctx context.Context) error
}
