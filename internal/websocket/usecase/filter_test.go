package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "logstream-srv/internal/websocket"
)

func TestNewLogFilterEmpty(t *testing.T) {
	f, err := newLogFilter(ws.SetFiltersRequest{Sources: []string{" "}})
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestLogFilterMatch(t *testing.T) {
	entry := ws.LogEntryData{
		Level:     "WARN",
		Message:   "slow query on orders",
		Source:    "db",
		Timestamp: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Metadata:  map[string]any{"duration_ms": 1200.0, "table": "orders"},
	}

	cases := []struct {
		name string
		req  ws.SetFiltersRequest
		want bool
	}{
		{"level alias", ws.SetFiltersRequest{Levels: []string{"warning"}}, true},
		{"level miss", ws.SetFiltersRequest{Levels: []string{"error"}}, false},
		{"source hit", ws.SetFiltersRequest{Sources: []string{"db"}}, true},
		{"source miss", ws.SetFiltersRequest{Sources: []string{"api"}}, false},
		{"metadata expr", ws.SetFiltersRequest{Expression: `metadata.duration_ms > 1000.0 && metadata.table == "orders"`}, true},
		{"message expr", ws.SetFiltersRequest{Expression: `message.startsWith("fast")`}, false},
		{"missing key errors to false", ws.SetFiltersRequest{Expression: `metadata.nope == 1`}, false},
		{"timestamp expr", ws.SetFiltersRequest{Expression: `ts > timestamp("2025-12-31T00:00:00Z")`}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := newLogFilter(tc.req)
			require.NoError(t, err)
			require.NotNil(t, f)
			assert.Equal(t, tc.want, f.match(entry))
		})
	}
}

func TestLogFilterRejectsNonBoolean(t *testing.T) {
	_, err := newLogFilter(ws.SetFiltersRequest{Expression: `message`})
	assert.ErrorIs(t, err, ws.ErrInvalidFilter)
}
