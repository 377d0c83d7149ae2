package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"logstream-srv/internal/model"
	"logstream-srv/internal/source"

	"github.com/google/uuid"
)

const (
	maxMessageLen    = 32 * 1024
	maxSourceLen     = 256
	maxMetadataDepth = 8
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC1123Z,
	time.RFC1123,
}

// normalize converts one provider event into a LogEvent owned by conn.
func normalize(conn model.Connection, raw source.RawEvent, now time.Time) model.LogEvent {
	src := sanitizeText(raw.Source, maxSourceLen)
	if src == "" {
		src = conn.Provider
	}
	return model.LogEvent{
		ID:           uuid.NewString(),
		ProjectID:    conn.ProjectID,
		UserID:       conn.UserID,
		ConnectionID: conn.ID,
		Timestamp:    normalizeTimestamp(raw, now),
		Level:        model.ParseLevel(raw.Level),
		Message:      sanitizeText(raw.Message, maxMessageLen),
		Source:       src,
		Metadata:     sanitizeMetadata(raw.Metadata),
		Raw:          normalizeRaw(raw.Raw),
		CreatedAt:    now.UTC(),
	}
}

func normalizeTimestamp(raw source.RawEvent, now time.Time) time.Time {
	if !raw.Timestamp.IsZero() {
		return raw.Timestamp.UTC()
	}
	if ts, ok := parseTimestamp(raw.TimestampText); ok {
		return ts.UTC()
	}
	return now.UTC()
}

// parseTimestamp accepts the common textual layouts and unix epochs in
// seconds, milliseconds, microseconds or nanoseconds.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		switch {
		case f >= 1e17:
			return time.Unix(0, int64(f)), true
		case f >= 1e14:
			return time.UnixMicro(int64(f)), true
		case f >= 1e11:
			return time.UnixMilli(int64(f)), true
		default:
			sec, frac := math.Modf(f)
			return time.Unix(int64(sec), int64(frac*1e9)), true
		}
	}
	return time.Time{}, false
}

// sanitizeText makes s valid UTF-8, drops control characters other than
// newline and tab, trims it and caps it at max bytes.
func sanitizeText(s string, max int) string {
	s = strings.ToValidUTF8(s, "�")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if len(s) > max {
		s = strings.ToValidUTF8(s[:max], "")
	}
	return s
}

// jsonString makes s valid UTF-8 without NUL characters, which jsonb
// columns reject.
func jsonString(s string) string {
	s = strings.ToValidUTF8(s, "�")
	if strings.IndexByte(s, 0) >= 0 {
		s = strings.ReplaceAll(s, "\x00", "")
	}
	return s
}

func sanitizeMetadata(md map[string]any) map[string]any {
	if len(md) == 0 {
		return nil
	}
	out, _ := sanitizeValue(md, 0).(map[string]any)
	return out
}

// sanitizeValue returns a JSON-serializable form of v. Values that cannot be
// encoded are stringified rather than dropped.
func sanitizeValue(v any, depth int) any {
	if depth > maxMetadataDepth {
		return jsonString(fmt.Sprint(v))
	}
	switch t := v.(type) {
	case nil, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return t
	case string:
		return jsonString(t)
	case float32:
		return sanitizeFloat(float64(t))
	case float64:
		return sanitizeFloat(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case error:
		return jsonString(t.Error())
	case []byte:
		return jsonString(string(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[jsonString(k)] = sanitizeValue(val, depth+1)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[jsonString(k)] = jsonString(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = sanitizeValue(val, depth+1)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = jsonString(val)
		}
		return out
	case fmt.Stringer:
		return jsonString(t.String())
	}

	b, err := json.Marshal(v)
	if err != nil {
		return jsonString(fmt.Sprintf("%v", v))
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return jsonString(string(b))
	}
	return sanitizeValue(generic, depth+1)
}

func sanitizeFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}

var escapedNUL = []byte(`\u0000`)

// normalizeRaw keeps valid JSON as is and encodes anything else as a JSON
// string. Documents carrying an escaped NUL are re-encoded without it.
func normalizeRaw(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		b, _ := json.Marshal(jsonString(string(raw)))
		return b
	}
	if !bytes.Contains(raw, escapedNUL) {
		return raw
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	b, err := json.Marshal(sanitizeValue(v, 0))
	if err != nil {
		return raw
	}
	return b
}
