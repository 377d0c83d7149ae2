package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"logstream-srv/internal/auth"
	ws "logstream-srv/internal/websocket"
)

// inbound is one client frame moving through the middleware steps.
type inbound struct {
	raw    []byte
	typ    ws.MessageType
	fields map[string]any
}

// decode copies the sanitized fields into a typed request.
func (m *inbound) decode(v any) error {
	b, err := json.Marshal(m.fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

type inboundStep func(ctx context.Context, c *connection, m *inbound) error

// rejection is a step failure that becomes an error frame.
type rejection struct {
	code string
	msg  string
	err  error
}

func (r *rejection) Error() string { return r.msg }
func (r *rejection) Unwrap() error { return r.err }

func reject(code string, err error, format string, args ...any) error {
	return &rejection{code: code, msg: fmt.Sprintf(format, args...), err: err}
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindBool
	kindStringList
)

type fieldSpec struct {
	name     string
	kind     fieldKind
	required bool
	maxLen   int
}

const maxContentLen = 4000

var inboundSchemas = map[ws.MessageType][]fieldSpec{
	ws.MessageTypePing:        nil,
	ws.MessageTypeSubscribe:   {{name: "topic", kind: kindString, required: true, maxLen: 256}},
	ws.MessageTypeUnsubscribe: {{name: "topic", kind: kindString, required: true, maxLen: 256}},
	ws.MessageTypeSetFilters: {
		{name: "levels", kind: kindStringList},
		{name: "sources", kind: kindStringList},
		{name: "expression", kind: kindString, maxLen: 1024},
	},
	ws.MessageTypeMarkRead: {{name: "alertId", kind: kindString, required: true, maxLen: 64}},
	ws.MessageTypeUserMessage: {
		{name: "chatId", kind: kindString, required: true, maxLen: 128},
		{name: "content", kind: kindString, required: true, maxLen: maxContentLen},
	},
	ws.MessageTypeTyping: {
		{name: "chatId", kind: kindString, required: true, maxLen: 128},
		{name: "isTyping", kind: kindBool},
	},
}

// rawFields are passed through unescaped; filter expressions are code, not text.
var rawFields = map[ws.MessageType]map[string]bool{
	ws.MessageTypeSetFilters: {"expression": true},
}

// handleInbound runs parse, validate, sanitize and rate limit, then
// dispatches. A failing step answers with an error frame and keeps the
// connection open.
func (uc *implUseCase) handleInbound(ctx context.Context, c *connection, raw []byte) {
	c.touch()

	m := &inbound{raw: raw}
	for _, step := range uc.steps {
		if err := step(ctx, c, m); err != nil {
			uc.replyError(ctx, c, err)
			return
		}
	}

	h, ok := uc.handlers[m.typ]
	if !ok {
		uc.replyError(ctx, c, reject(ws.CodeUnknownType, ws.ErrUnknownMessageType, "unknown message type %q", m.typ))
		return
	}
	if err := h.handle(ctx, c, m); err != nil {
		uc.replyError(ctx, c, err)
	}
}

func (uc *implUseCase) parseStep(ctx context.Context, c *connection, m *inbound) error {
	if err := json.Unmarshal(m.raw, &m.fields); err != nil || m.fields == nil {
		uc.security.LogInvalidInput(ctx, c.userID, "frame", "malformed json")
		return reject(ws.CodeInvalidJSON, ws.ErrInvalidMessage, "frame is not a JSON object")
	}
	t, ok := m.fields["type"].(string)
	if !ok || t == "" {
		uc.security.LogInvalidInput(ctx, c.userID, "type", "missing")
		return reject(ws.CodeInvalidMessage, ws.ErrInvalidMessage, "frame has no type")
	}
	m.typ = ws.MessageType(t)
	return nil
}

func (uc *implUseCase) validateStep(ctx context.Context, c *connection, m *inbound) error {
	schema, ok := inboundSchemas[m.typ]
	if !ok {
		uc.security.LogInvalidInput(ctx, c.userID, "type", "unknown type")
		return reject(ws.CodeUnknownType, ws.ErrUnknownMessageType, "unknown message type %q", m.typ)
	}
	for _, f := range schema {
		v, present := m.fields[f.name]
		if !present || v == nil {
			if f.required {
				uc.security.LogInvalidInput(ctx, c.userID, f.name, "missing")
				return reject(ws.CodeInvalidMessage, ws.ErrInvalidMessage, "%s requires field %q", m.typ, f.name)
			}
			continue
		}
		if err := checkField(f, v); err != nil {
			uc.security.LogInvalidInput(ctx, c.userID, f.name, err.Error())
			return reject(ws.CodeInvalidMessage, ws.ErrInvalidMessage, "field %q: %v", f.name, err)
		}
	}
	return nil
}

func checkField(f fieldSpec, v any) error {
	switch f.kind {
	case kindString:
		s, ok := v.(string)
		if !ok {
			return errors.New("must be a string")
		}
		if f.required && strings.TrimSpace(s) == "" {
			return errors.New("must not be empty")
		}
		if f.maxLen > 0 && len(s) > f.maxLen {
			return fmt.Errorf("longer than %d bytes", f.maxLen)
		}
	case kindBool:
		if _, ok := v.(bool); !ok {
			return errors.New("must be a boolean")
		}
	case kindStringList:
		list, ok := v.([]any)
		if !ok {
			return errors.New("must be an array of strings")
		}
		for _, item := range list {
			if _, ok := item.(string); !ok {
				return errors.New("must be an array of strings")
			}
		}
	}
	return nil
}

func (uc *implUseCase) sanitizeStep(ctx context.Context, c *connection, m *inbound) error {
	skip := rawFields[m.typ]
	for k, v := range m.fields {
		if skip[k] {
			continue
		}
		m.fields[k] = sanitizeValue(v)
	}
	return nil
}

// sanitizeValue HTML-escapes every string reachable from v.
func sanitizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return html.EscapeString(t)
	case []any:
		for i := range t {
			t[i] = sanitizeValue(t[i])
		}
		return t
	case map[string]any:
		for k, item := range t {
			t[k] = sanitizeValue(item)
		}
		return t
	default:
		return v
	}
}

func (uc *implUseCase) rateLimitStep(ctx context.Context, c *connection, m *inbound) error {
	err := uc.limiter.Allow(c.id)
	if err == nil {
		return nil
	}
	var rle *auth.RateLimitError
	if errors.As(err, &rle) {
		uc.security.LogRateLimitExceeded(ctx, c.userID, rle.Limit, rle.Current, rle.Max)
	}
	return reject(ws.CodeRateLimited, err, "too many messages, slow down")
}

// replyError sends err to c as an error frame.
func (uc *implUseCase) replyError(ctx context.Context, c *connection, err error) {
	code, msg := errorCode(err), err.Error()
	var r *rejection
	if errors.As(err, &r) {
		code, msg = r.code, r.msg
	}
	if code == ws.CodeInternal {
		uc.l.Errorf(ctx, "internal.websocket.usecase.handleInbound: connection %s: %v", c.id, err)
		msg = "internal error"
	}
	_ = uc.SendTo(ctx, c.id, ws.ErrorFrame(code, msg))
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ws.ErrInvalidTopic):
		return ws.CodeInvalidTopic
	case errors.Is(err, ws.ErrForbiddenTopic):
		return ws.CodeForbidden
	case errors.Is(err, ws.ErrInvalidFilter):
		return ws.CodeInvalidFilter
	case errors.Is(err, ws.ErrInvalidMessage):
		return ws.CodeInvalidMessage
	case errors.Is(err, ws.ErrUnknownMessageType):
		return ws.CodeUnknownType
	case auth.IsRateLimitError(err):
		return ws.CodeRateLimited
	default:
		return ws.CodeInternal
	}
}
