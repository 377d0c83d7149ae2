package usecase

import (
	"encoding/json"
	"sync"

	ws "logstream-srv/internal/websocket"
	"logstream-srv/pkg/compress"
)

// encode marshals frame and compresses it above the size threshold.
// encoding/json escapes <, > and & inside strings, which keeps every
// outbound string HTML-safe.
func (uc *implUseCase) encode(frame ws.Frame) (outMessage, error) {
	b, err := json.Marshal(frame)
	if err != nil {
		return outMessage{}, err
	}
	if uc.cfg.CompressionThreshold > 0 && len(b) > uc.cfg.CompressionThreshold {
		return outMessage{binary: true, data: compress.Encode(b)}, nil
	}
	return outMessage{data: b}, nil
}

// delivery is one broadcast on its way to local subscribers. The shared
// encoding is computed once; filtered subscribers get their own.
type delivery struct {
	topic   string
	frame   ws.Frame
	entries []ws.LogEntryData
	// key identifies frames that may reach one connection through several
	// topics. Empty means no deduplication.
	key string

	once sync.Once
	msg  outMessage
	err  error
}

func newDelivery(topic string, frame ws.Frame) *delivery {
	d := &delivery{topic: topic, frame: frame}
	switch v := frame.Data.(type) {
	case ws.LogEntryData:
		d.entries = []ws.LogEntryData{v}
	case ws.LogBatchData:
		d.entries = v.Entries
	}
	d.key = dedupeKey(frame)
	return d
}

// dedupeKey returns the alert id of alert frames, decoded or relayed.
func dedupeKey(frame ws.Frame) string {
	if frame.Type != ws.MessageTypeAlert {
		return ""
	}
	var id string
	switch v := frame.Data.(type) {
	case ws.AlertData:
		id = v.ID
	case json.RawMessage:
		var a struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(v, &a) == nil {
			id = a.ID
		}
	}
	if id == "" {
		return ""
	}
	return "alert:" + id
}

func (d *delivery) encoded(uc *implUseCase) (outMessage, error) {
	d.once.Do(func() {
		d.msg, d.err = uc.encode(d.frame)
	})
	return d.msg, d.err
}

// messageFor returns what c should receive for d, or ok=false when c's
// filters reject every entry.
func (uc *implUseCase) messageFor(c *connection, d *delivery) (outMessage, bool, error) {
	f := c.filter.Load()
	if f == nil || d.entries == nil {
		msg, err := d.encoded(uc)
		return msg, err == nil, err
	}

	kept := f.apply(d.entries)
	switch {
	case len(kept) == 0:
		return outMessage{}, false, nil
	case len(kept) == len(d.entries):
		msg, err := d.encoded(uc)
		return msg, err == nil, err
	}

	frame := d.frame
	frame.Type = ws.MessageTypeLogBatch
	frame.Data = ws.LogBatchData{Entries: kept}
	msg, err := uc.encode(frame)
	return msg, err == nil, err
}
