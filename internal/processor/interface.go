package processor

import "context"

// UseCase turns fetched raw events into normalized, persisted events and
// hands them to the downstream consumers.
//
//go:generate mockery --name UseCase
type UseCase interface {
	// Process normalizes and persists one batch, then starts the fan-out
	// tasks without waiting for them. It fails only when nothing could be
	// stored.
	Process(ctx context.Context, input ProcessInput) (ProcessResult, error)
	// Wait blocks until every in-flight fan-out task is done or ctx ends.
	Wait(ctx context.Context) error
	Stats() Stats
}
