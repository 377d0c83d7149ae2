// Package indexing hands important events to the external search indexer.
package indexing

import (
	"context"

	"logstream-srv/internal/model"
)

// Indexer forwards events for indexing. Callers treat it as fire and forget;
// implementations log their own failures.
type Indexer interface {
	IndexBatch(ctx context.Context, events []model.LogEvent) error
}

// Important keeps the events worth indexing: WARN, ERROR and CRITICAL.
func Important(events []model.LogEvent) []model.LogEvent {
	var out []model.LogEvent
	for _, e := range events {
		if e.Level.IsImportant() {
			out = append(out, e)
		}
	}
	return out
}

type nopIndexer struct{}

// NewNop returns an Indexer that drops everything. Used when no indexing
// transport is configured.
func NewNop() Indexer { return nopIndexer{} }

func (nopIndexer) IndexBatch(context.Context, []model.LogEvent) error { return nil }
