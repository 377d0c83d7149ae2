// Package httpjson polls an HTTP endpoint that returns log events as JSON.
package httpjson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"logstream-srv/internal/model"
	"logstream-srv/internal/source"
	"logstream-srv/pkg/retry"
)

// Kind is the provider name this adapter registers under.
const Kind = "http_json"

const (
	configURL        = "url"
	configSinceParam = "since_param"
	configLookback   = "initial_lookback"
	headerPrefix     = "header."
	secretToken      = "token"

	defaultSinceParam = "since"
	defaultLookback   = 15 * time.Minute
	maxBodyBytes      = 32 << 20

	breakerThreshold = 5
	breakerCooldown  = time.Minute
)

type adapter struct {
	endpoint   *url.URL
	sinceParam string
	lookback   time.Duration
	headers    http.Header
	client     *http.Client
	breaker    *retry.Breaker
	now        func() time.Time
}

// Options tunes the adapter beyond what the connection config carries.
type Options struct {
	Client *http.Client
}

// Factory returns a source.Factory for http_json connections.
func Factory(opts Options) source.Factory {
	return func(conn model.Connection, secrets map[string]string) (source.Adapter, error) {
		return New(conn, secrets, opts)
	}
}

// New builds an adapter from connection config and decrypted secrets.
func New(conn model.Connection, secrets map[string]string, opts Options) (source.Adapter, error) {
	raw := conn.Config[configURL]
	if raw == "" {
		return nil, source.Terminalf("httpjson: %s is required", configURL)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, source.Terminalf("httpjson: invalid url %q", raw)
	}

	a := &adapter{
		endpoint:   u,
		sinceParam: defaultSinceParam,
		lookback:   defaultLookback,
		headers:    make(http.Header),
		client:     opts.Client,
		breaker:    retry.NewBreaker(breakerThreshold, breakerCooldown),
		now:        time.Now,
	}
	if a.client == nil {
		a.client = &http.Client{Timeout: 30 * time.Second}
	}
	if p := conn.Config[configSinceParam]; p != "" {
		a.sinceParam = p
	}
	if lb := conn.Config[configLookback]; lb != "" {
		d, err := time.ParseDuration(lb)
		if err != nil {
			return nil, source.Terminalf("httpjson: invalid %s: %v", configLookback, err)
		}
		a.lookback = d
	}

	for _, m := range []map[string]string{conn.Config, secrets} {
		for k, v := range m {
			if strings.HasPrefix(k, headerPrefix) {
				a.headers.Set(strings.TrimPrefix(k, headerPrefix), v)
			}
		}
	}
	if tok := secrets[secretToken]; tok != "" {
		a.headers.Set("Authorization", "Bearer "+tok)
	}
	a.headers.Set("Accept", "application/json")

	return a, nil
}

func (a *adapter) TestConnection(ctx context.Context) error {
	since := a.now().UTC()
	_, err := a.get(ctx, &since)
	return err
}

func (a *adapter) FetchSince(ctx context.Context, cursor *time.Time) ([]source.RawEvent, error) {
	since := cursor
	if since == nil {
		t := a.now().Add(-a.lookback).UTC()
		since = &t
	}
	body, err := a.get(ctx, since)
	if err != nil {
		return nil, err
	}
	return decodeEvents(body)
}

func (a *adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

func (a *adapter) get(ctx context.Context, since *time.Time) ([]byte, error) {
	if err := a.breaker.Allow(); err != nil {
		return nil, fmt.Errorf("httpjson: %s: %w", a.endpoint.Host, err)
	}
	body, err := a.do(ctx, since)
	// Terminal failures are configuration problems, not endpoint health.
	if source.IsTerminal(err) {
		a.breaker.Record(nil)
	} else {
		a.breaker.Record(err)
	}
	return body, err
}

func (a *adapter) do(ctx context.Context, since *time.Time) ([]byte, error) {
	u := *a.endpoint
	q := u.Query()
	if since != nil {
		q.Set(a.sinceParam, since.UTC().Format(time.RFC3339Nano))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, source.Terminalf("httpjson: failed to create request: %v", err)
	}
	req.Header = a.headers.Clone()

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpjson: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, source.Terminalf("httpjson: authentication error (HTTP %d)", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, source.Terminalf("httpjson: endpoint not found (HTTP 404)")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("httpjson: rate limit exceeded (HTTP 429)")
	default:
		return nil, fmt.Errorf("httpjson: unexpected HTTP status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("httpjson: failed to read body: %w", err)
	}
	return body, nil
}

// decodeEvents accepts either a bare array or an object with an "events" array.
func decodeEvents(body []byte) ([]source.RawEvent, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, nil
	}

	var items []json.RawMessage
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("httpjson: failed to parse response: %w", err)
		}
	} else {
		var env struct {
			Events []json.RawMessage `json:"events"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("httpjson: failed to parse response: %w", err)
		}
		items = env.Events
	}

	events := make([]source.RawEvent, 0, len(items))
	for _, item := range items {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil {
			// Non-object entries are kept as a message-only event.
			events = append(events, source.RawEvent{Message: string(item), Raw: item})
			continue
		}
		events = append(events, toRawEvent(fields, item))
	}
	return events, nil
}

var (
	timestampKeys = []string{"timestamp", "time", "@timestamp", "ts"}
	levelKeys     = []string{"level", "severity", "lvl"}
	messageKeys   = []string{"message", "msg", "text"}
	sourceKeys    = []string{"source", "logger", "service"}
)

func toRawEvent(fields map[string]any, raw json.RawMessage) source.RawEvent {
	ev := source.RawEvent{Raw: raw}

	if v, k := pick(fields, timestampKeys); k != "" {
		switch t := v.(type) {
		case string:
			ev.TimestampText = t
		case float64:
			ev.TimestampText = fmt.Sprintf("%.0f", t)
		}
	}
	if v, k := pick(fields, levelKeys); k != "" {
		ev.Level = fmt.Sprint(v)
	}
	if v, k := pick(fields, messageKeys); k != "" {
		if s, ok := v.(string); ok {
			ev.Message = s
		} else {
			b, _ := json.Marshal(v)
			ev.Message = string(b)
		}
	}
	if v, k := pick(fields, sourceKeys); k != "" {
		ev.Source = fmt.Sprint(v)
	}

	if md, ok := fields["metadata"].(map[string]any); ok {
		ev.Metadata = md
	} else {
		ev.Metadata = make(map[string]any)
		for k, v := range fields {
			if !isKnown(k) {
				ev.Metadata[k] = v
			}
		}
	}
	return ev
}

func pick(fields map[string]any, keys []string) (any, string) {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			return v, k
		}
	}
	return nil, ""
}

func isKnown(k string) bool {
	for _, group := range [][]string{timestampKeys, levelKeys, messageKeys, sourceKeys} {
		for _, g := range group {
			if g == k {
				return true
			}
		}
	}
	return false
}
