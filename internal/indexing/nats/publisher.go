package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"logstream-srv/internal/indexing"
	"logstream-srv/internal/model"
	pkgLog "logstream-srv/pkg/log"
)

const defaultChunkSize = 50

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Message is one indexing request on the subject.
type Message struct {
	ProjectID string           `json:"project_id"`
	SentAt    time.Time        `json:"sent_at"`
	Events    []model.LogEvent `json:"events"`
}

type publisher struct {
	l         pkgLog.Logger
	conn      Conn
	subject   string
	chunkSize int
}

var _ indexing.Indexer = &publisher{}

// New publishes important events to subject, grouped per project in
// messages of at most chunkSize events.
func New(l pkgLog.Logger, conn Conn, subject string, chunkSize int) indexing.Indexer {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &publisher{l: l, conn: conn, subject: subject, chunkSize: chunkSize}
}

func (p *publisher) IndexBatch(ctx context.Context, events []model.LogEvent) error {
	important := indexing.Important(events)
	if len(important) == 0 {
		return nil
	}

	byProject := make(map[string][]model.LogEvent)
	var order []string
	for _, e := range important {
		if _, ok := byProject[e.ProjectID]; !ok {
			order = append(order, e.ProjectID)
		}
		byProject[e.ProjectID] = append(byProject[e.ProjectID], e)
	}

	for _, projectID := range order {
		group := byProject[projectID]
		for start := 0; start < len(group); start += p.chunkSize {
			end := min(start+p.chunkSize, len(group))
			if err := p.publish(ctx, projectID, group[start:end]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *publisher) publish(ctx context.Context, projectID string, events []model.LogEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(Message{ProjectID: projectID, SentAt: time.Now().UTC(), Events: events})
	if err != nil {
		p.l.Errorf(ctx, "internal.indexing.nats.publish.Marshal: %v", err)
		return fmt.Errorf("marshal index message: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		p.l.Errorf(ctx, "internal.indexing.nats.publish.Publish: project=%s: %v", projectID, err)
		return fmt.Errorf("publish index message: %w", err)
	}
	return nil
}
