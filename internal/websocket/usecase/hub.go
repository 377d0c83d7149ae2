package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"logstream-srv/internal/auth"
	ws "logstream-srv/internal/websocket"
)

// Connect registers a transport, subscribes it to its owner's user topic and
// starts its pumps.
func (uc *implUseCase) Connect(ctx context.Context, input ws.ConnectInput) (string, error) {
	if input.Transport == nil || input.UserID == "" {
		return "", ws.ErrInvalidConnectInput
	}

	if uc.tracker != nil {
		if err := uc.tracker.Acquire(ctx, input.UserID); err != nil {
			var rle *auth.RateLimitError
			if errors.As(err, &rle) {
				uc.security.LogRateLimitExceeded(ctx, input.UserID, rle.Limit, rle.Current, rle.Max)
			}
			return "", err
		}
	}

	c := newConnection(uuid.NewString(), input, uc)
	userTopic := ws.UserTopic(input.UserID)

	uc.mu.Lock()
	if uc.closing || (uc.cfg.MaxConnections > 0 && len(uc.conns) >= uc.cfg.MaxConnections) {
		closing := uc.closing
		uc.mu.Unlock()
		if uc.tracker != nil {
			uc.tracker.Release(input.UserID)
		}
		if closing {
			return "", ws.ErrConnectionClosed
		}
		return "", ws.ErrMaxConnectionsReached
	}
	uc.conns[c.id] = c
	addMember(uc.users, input.UserID, c)
	addMember(uc.topics, userTopic, c)
	c.topics[userTopic] = struct{}{}
	uc.mu.Unlock()

	go c.writePump()
	go c.readPump()

	uc.l.Infof(ctx, "internal.websocket.usecase.Connect: connection %s opened for user %s", c.id, c.userID)

	_ = uc.SendTo(ctx, c.id, ws.NewFrame(ws.MessageTypeConnectionEstablished, ws.ConnectionEstablishedData{
		ConnectionID: c.id,
		UserID:       c.userID,
		NodeID:       uc.cfg.NodeID,
	}))
	return c.id, nil
}

// Disconnect removes the connection and all of its subscriptions. Unknown
// ids are ignored so every failure path may call it.
func (uc *implUseCase) Disconnect(ctx context.Context, connectionID string) {
	uc.mu.Lock()
	c, ok := uc.conns[connectionID]
	if !ok {
		uc.mu.Unlock()
		return
	}
	delete(uc.conns, connectionID)
	for topic := range c.topics {
		removeMember(uc.topics, topic, connectionID)
	}
	c.topics = nil
	removeMember(uc.users, c.userID, connectionID)
	uc.mu.Unlock()

	c.close()
	if uc.tracker != nil {
		uc.tracker.Release(c.userID)
	}
	uc.limiter.Remove(connectionID)

	uc.l.Infof(ctx, "internal.websocket.usecase.Disconnect: connection %s closed for user %s", connectionID, c.userID)
}

func (uc *implUseCase) Subscribe(ctx context.Context, connectionID, topic string) error {
	t, err := ws.ParseTopic(topic)
	if err != nil {
		return err
	}
	c, err := uc.lookup(connectionID)
	if err != nil {
		return err
	}
	if err := uc.authorize(ctx, c.userID, t); err != nil {
		return err
	}

	key := t.String()
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if _, ok := uc.conns[connectionID]; !ok {
		return ws.ErrConnectionNotFound
	}
	c.topics[key] = struct{}{}
	addMember(uc.topics, key, c)
	return nil
}

func (uc *implUseCase) Unsubscribe(ctx context.Context, connectionID, topic string) error {
	t, err := ws.ParseTopic(topic)
	if err != nil {
		return err
	}
	key := t.String()

	uc.mu.Lock()
	defer uc.mu.Unlock()
	c, ok := uc.conns[connectionID]
	if !ok {
		return ws.ErrConnectionNotFound
	}
	delete(c.topics, key)
	removeMember(uc.topics, key, connectionID)
	return nil
}

// SendTo queues frame for one connection. A connection that can no longer
// accept frames is disconnected.
func (uc *implUseCase) SendTo(ctx context.Context, connectionID string, frame ws.Frame) error {
	c, err := uc.lookup(connectionID)
	if err != nil {
		return err
	}
	msg, err := uc.encode(frame)
	if err != nil {
		uc.failed.Add(1)
		return err
	}
	return uc.enqueue(ctx, c, msg)
}

// Broadcast delivers frame to local subscribers of topic and, for
// cross-process topics, republishes it on the broker. Topics without
// subscribers are a no-op.
func (uc *implUseCase) Broadcast(ctx context.Context, topic string, frame ws.Frame) error {
	t, err := ws.ParseTopic(topic)
	if err != nil {
		return err
	}
	if frame.Timestamp.IsZero() {
		frame.Timestamp = uc.now().UTC()
	}

	if frame.Type == ws.MessageTypeLogEntry && uc.batcher != nil {
		if entry, ok := frame.Data.(ws.LogEntryData); ok {
			uc.batcher.add(t.String(), entry)
			return nil
		}
	}

	uc.emit(ctx, t, newDelivery(t.String(), frame))
	return nil
}

func (uc *implUseCase) emit(ctx context.Context, t ws.Topic, d *delivery) {
	uc.deliverLocal(ctx, d)
	if t.CrossProcess() && uc.broker != nil {
		if err := uc.publish(ctx, d.topic, d.frame); err != nil {
			uc.l.Warnf(ctx, "internal.websocket.usecase.emit.publish: topic=%s: %v", d.topic, err)
		}
	}
}

// deliverLocal fans d out to this node's subscribers and returns how many
// connections received it.
func (uc *implUseCase) deliverLocal(ctx context.Context, d *delivery) int {
	uc.mu.RLock()
	members := uc.topics[d.topic]
	subs := make([]*connection, 0, len(members))
	for _, c := range members {
		subs = append(subs, c)
	}
	uc.mu.RUnlock()

	delivered := 0
	for _, c := range subs {
		if d.key != "" && !c.recent.add(d.key) {
			continue
		}
		msg, ok, err := uc.messageFor(c, d)
		if err != nil {
			uc.failed.Add(1)
			uc.l.Errorf(ctx, "internal.websocket.usecase.deliverLocal.encode: topic=%s: %v", d.topic, err)
			continue
		}
		if !ok {
			continue
		}
		if err := uc.enqueue(ctx, c, msg); err != nil {
			continue
		}
		delivered++
	}
	return delivered
}

func (uc *implUseCase) enqueue(ctx context.Context, c *connection, msg outMessage) error {
	dropped, err := c.queue.push(msg)
	if dropped > 0 {
		uc.dropped.Add(uint64(dropped))
		uc.l.Debugf(ctx, "internal.websocket.usecase.enqueue: dropped %d queued frames for %s", dropped, c.id)
	}
	if err != nil {
		uc.failed.Add(1)
		uc.Disconnect(ctx, c.id)
		return err
	}
	return nil
}

func (uc *implUseCase) lookup(connectionID string) (*connection, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	c, ok := uc.conns[connectionID]
	if !ok {
		return nil, ws.ErrConnectionNotFound
	}
	return c, nil
}

func (uc *implUseCase) authorize(ctx context.Context, userID string, t ws.Topic) error {
	var (
		allowed bool
		err     error
	)
	switch t.Kind {
	case ws.TopicUser:
		allowed = t.ID == userID
	case ws.TopicProject:
		allowed = true
		if uc.authorizer != nil {
			allowed, err = uc.authorizer.CanAccessProject(ctx, userID, t.ID)
		}
	case ws.TopicChat:
		allowed = true
		if uc.authorizer != nil {
			allowed, err = uc.authorizer.CanAccessChat(ctx, userID, t.ID)
		}
	}
	if err != nil {
		return fmt.Errorf("authorize %s: %w", t, err)
	}
	if !allowed {
		uc.security.LogAuthorizationFailure(ctx, userID, string(t.Kind), t.ID, "subscription refused")
		return ws.ErrForbiddenTopic
	}
	return nil
}

func addMember(m map[string]map[string]*connection, key string, c *connection) {
	set, ok := m[key]
	if !ok {
		set = make(map[string]*connection)
		m[key] = set
	}
	set[c.id] = c
}

func removeMember(m map[string]map[string]*connection, key, id string) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(m, key)
	}
}
