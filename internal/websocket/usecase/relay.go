package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	ws "logstream-srv/internal/websocket"
	"logstream-srv/pkg/retry"
)

// envelope is what travels on the broker channel. Data is the JSON frame.
type envelope struct {
	Origin string          `json:"origin"`
	Topic  string          `json:"topic"`
	Data   json.RawMessage `json:"data"`
}

// relayFrame mirrors ws.Frame with Data left undecoded.
type relayFrame struct {
	Type      ws.MessageType  `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
	Code      string          `json:"code,omitempty"`
	Message   string          `json:"message,omitempty"`
}

func (uc *implUseCase) PublishCrossProcess(ctx context.Context, topic string, frame ws.Frame) error {
	if _, err := ws.ParseTopic(topic); err != nil {
		return err
	}
	if uc.broker == nil {
		return ws.ErrBrokerUnavailable
	}
	if frame.Timestamp.IsZero() {
		frame.Timestamp = uc.now().UTC()
	}
	return uc.publish(ctx, topic, frame)
}

func (uc *implUseCase) publish(ctx context.Context, topic string, frame ws.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(envelope{Origin: uc.cfg.NodeID, Topic: topic, Data: data})
	if err != nil {
		return err
	}
	return uc.broker.Publish(ctx, uc.cfg.Channel, payload)
}

// relayLoop keeps a broker subscription alive until ctx is done or the
// broker is closed.
func (uc *implUseCase) relayLoop(ctx context.Context) {
	backoff := retry.Exponential{Base: time.Second, Max: 30 * time.Second, Jitter: 0.2}
	for attempt := 0; ; attempt++ {
		err := uc.broker.Subscribe(ctx, uc.cfg.Channel, uc.handleRelay)
		if ctx.Err() != nil || errors.Is(err, ws.ErrBrokerClosed) {
			return
		}
		uc.l.Warnf(ctx, "internal.websocket.usecase.relayLoop: %s subscription ended: %v", uc.broker.Name(), err)
		if retry.Sleep(ctx, backoff.Delay(attempt)) != nil {
			return
		}
	}
}

// handleRelay delivers an envelope from another node to local subscribers.
// It never republishes.
func (uc *implUseCase) handleRelay(ctx context.Context, payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		uc.l.Warnf(ctx, "internal.websocket.usecase.handleRelay.Unmarshal: %v", err)
		return
	}
	if env.Origin == uc.cfg.NodeID {
		return
	}
	t, err := ws.ParseTopic(env.Topic)
	if err != nil {
		uc.l.Warnf(ctx, "internal.websocket.usecase.handleRelay.ParseTopic: %v", err)
		return
	}

	frame, err := decodeRelayFrame(env.Data)
	if err != nil {
		uc.l.Warnf(ctx, "internal.websocket.usecase.handleRelay.decodeRelayFrame: %v", err)
		return
	}
	uc.deliverLocal(ctx, newDelivery(t.String(), frame))
}

func decodeRelayFrame(data []byte) (ws.Frame, error) {
	var rf relayFrame
	if err := json.Unmarshal(data, &rf); err != nil {
		return ws.Frame{}, err
	}
	frame := ws.Frame{Type: rf.Type, Timestamp: rf.Timestamp, Code: rf.Code, Message: rf.Message}
	if len(rf.Data) > 0 {
		frame.Data = rf.Data
	}

	// log traffic is decoded so per-connection filters apply on this node too
	switch rf.Type {
	case ws.MessageTypeLogEntry:
		var e ws.LogEntryData
		if err := json.Unmarshal(rf.Data, &e); err != nil {
			return ws.Frame{}, err
		}
		frame.Data = e
	case ws.MessageTypeLogBatch:
		var b ws.LogBatchData
		if err := json.Unmarshal(rf.Data, &b); err != nil {
			return ws.Frame{}, err
		}
		frame.Data = b
	}
	return frame, nil
}
