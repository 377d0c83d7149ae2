package usecase

import (
	"context"
	"fmt"

	ws "logstream-srv/internal/websocket"
)

// handler owns one inbound message type.
type handler interface {
	handle(ctx context.Context, c *connection, m *inbound) error
}

type handlerFunc func(ctx context.Context, c *connection, m *inbound) error

func (f handlerFunc) handle(ctx context.Context, c *connection, m *inbound) error {
	return f(ctx, c, m)
}

func (uc *implUseCase) buildHandlers() map[ws.MessageType]handler {
	return map[ws.MessageType]handler{
		ws.MessageTypePing:        handlerFunc(uc.handlePing),
		ws.MessageTypeSubscribe:   handlerFunc(uc.handleSubscribe),
		ws.MessageTypeUnsubscribe: handlerFunc(uc.handleUnsubscribe),
		ws.MessageTypeSetFilters:  handlerFunc(uc.handleSetFilters),
		ws.MessageTypeMarkRead:    handlerFunc(uc.handleMarkRead),
		ws.MessageTypeUserMessage: handlerFunc(uc.handleUserMessage),
		ws.MessageTypeTyping:      handlerFunc(uc.handleTyping),
	}
}

func (uc *implUseCase) handlePing(ctx context.Context, c *connection, m *inbound) error {
	return uc.SendTo(ctx, c.id, ws.NewFrame(ws.MessageTypePong, nil))
}

func (uc *implUseCase) handleSubscribe(ctx context.Context, c *connection, m *inbound) error {
	var req ws.SubscribeRequest
	if err := m.decode(&req); err != nil {
		return fmt.Errorf("%w: %v", ws.ErrInvalidMessage, err)
	}
	if err := uc.Subscribe(ctx, c.id, req.Topic); err != nil {
		return err
	}
	return uc.SendTo(ctx, c.id, ws.NewFrame(ws.MessageTypeSubscribed, ws.TopicData{Topic: req.Topic}))
}

func (uc *implUseCase) handleUnsubscribe(ctx context.Context, c *connection, m *inbound) error {
	var req ws.SubscribeRequest
	if err := m.decode(&req); err != nil {
		return fmt.Errorf("%w: %v", ws.ErrInvalidMessage, err)
	}
	if err := uc.Unsubscribe(ctx, c.id, req.Topic); err != nil {
		return err
	}
	return uc.SendTo(ctx, c.id, ws.NewFrame(ws.MessageTypeUnsubscribed, ws.TopicData{Topic: req.Topic}))
}

func (uc *implUseCase) handleSetFilters(ctx context.Context, c *connection, m *inbound) error {
	var req ws.SetFiltersRequest
	if err := m.decode(&req); err != nil {
		return fmt.Errorf("%w: %v", ws.ErrInvalidMessage, err)
	}
	f, err := newLogFilter(req)
	if err != nil {
		return err
	}
	c.filter.Store(f)
	return uc.SendTo(ctx, c.id, ws.NewFrame(ws.MessageTypeFiltersUpdated, req))
}

func (uc *implUseCase) handleMarkRead(ctx context.Context, c *connection, m *inbound) error {
	var req ws.MarkReadRequest
	if err := m.decode(&req); err != nil {
		return fmt.Errorf("%w: %v", ws.ErrInvalidMessage, err)
	}

	updated := false
	if r := uc.alertReader(); r != nil {
		ok, err := r.MarkRead(ctx, req.AlertID, c.userID)
		if err != nil {
			return fmt.Errorf("mark read %s: %w", req.AlertID, err)
		}
		updated = ok
	}
	return uc.SendTo(ctx, c.id, ws.NewFrame(ws.MessageTypeAlertRead, ws.AlertReadData{
		AlertID: req.AlertID,
		Updated: updated,
	}))
}

func (uc *implUseCase) handleUserMessage(ctx context.Context, c *connection, m *inbound) error {
	var req ws.UserMessageRequest
	if err := m.decode(&req); err != nil {
		return fmt.Errorf("%w: %v", ws.ErrInvalidMessage, err)
	}
	if err := uc.authorize(ctx, c.userID, ws.Topic{Kind: ws.TopicChat, ID: req.ChatID}); err != nil {
		return err
	}

	if err := uc.Broadcast(ctx, ws.ChatTopic(req.ChatID), ws.NewFrame(ws.MessageTypeChatMessage, ws.ChatMessageData{
		ChatID:  req.ChatID,
		UserID:  c.userID,
		Content: req.Content,
	})); err != nil {
		return err
	}

	if uc.chat != nil {
		if err := uc.chat.HandleMessage(ctx, c.userID, req.ChatID, req.Content); err != nil {
			return fmt.Errorf("chat handler: %w", err)
		}
	}
	return nil
}

func (uc *implUseCase) handleTyping(ctx context.Context, c *connection, m *inbound) error {
	var req ws.TypingRequest
	if err := m.decode(&req); err != nil {
		return fmt.Errorf("%w: %v", ws.ErrInvalidMessage, err)
	}
	return uc.Broadcast(ctx, ws.ChatTopic(req.ChatID), ws.NewFrame(ws.MessageTypeTyping, ws.TypingData{
		ChatID:   req.ChatID,
		UserID:   c.userID,
		IsTyping: req.IsTyping,
	}))
}
