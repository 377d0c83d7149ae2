package websocket

import (
	"context"
	"time"
)

// UseCase is the subscriber fan-out layer.
type UseCase interface {
	Broadcaster

	// Run starts the heartbeat reaper and the cross-process relay. It blocks
	// until ctx is done.
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error

	Connect(ctx context.Context, input ConnectInput) (string, error)
	Disconnect(ctx context.Context, connectionID string)
	Subscribe(ctx context.Context, connectionID, topic string) error
	Unsubscribe(ctx context.Context, connectionID, topic string) error
	SendTo(ctx context.Context, connectionID string, frame Frame) error

	// PublishCrossProcess publishes frame for topic on the broker only.
	PublishCrossProcess(ctx context.Context, topic string, frame Frame) error

	GetStats(ctx context.Context) HubStats

	// SetAlertReader installs the mark_read backend. Call before Run.
	SetAlertReader(r AlertReader)
}

// Broadcaster delivers a frame to every subscriber of topic, on this node
// and, for cross-process topics, on every other node.
type Broadcaster interface {
	Broadcast(ctx context.Context, topic string, frame Frame) error
}

// Broker carries relay envelopes between server processes.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe blocks, calling handle for each payload, until ctx is done.
	Subscribe(ctx context.Context, channel string, handle func(ctx context.Context, payload []byte)) error
	Name() string
	Close() error
}

// Transport is the bidirectional socket behind one connection.
// *websocket.Conn from gorilla satisfies it.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// TopicAuthorizer decides project and chat subscriptions.
type TopicAuthorizer interface {
	CanAccessProject(ctx context.Context, userID, projectID string) (bool, error)
	CanAccessChat(ctx context.Context, userID, chatID string) (bool, error)
}

// ChatHandler receives user_message frames.
type ChatHandler interface {
	HandleMessage(ctx context.Context, userID, chatID, content string) error
}

// AlertReader acknowledges alerts on behalf of a user.
type AlertReader interface {
	MarkRead(ctx context.Context, alertID, userID string) (bool, error)
}
