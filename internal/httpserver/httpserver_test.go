package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logstream-srv/internal/stream"
	ws "logstream-srv/internal/websocket"
	pkgJwt "logstream-srv/pkg/jwt"
	pkgLog "logstream-srv/pkg/log"
)

type fakeHub struct {
	ws.UseCase
}

func (fakeHub) GetStats(context.Context) ws.HubStats {
	return ws.HubStats{ActiveConnections: 4, TotalUniqueUsers: 2, Broker: "nats"}
}

type fakeStreams struct {
	stream.UseCase
}

func (fakeStreams) Health(context.Context) stream.Health {
	return stream.Health{TotalStreams: 1, RunningStreams: 1, Status: stream.HealthHealthy}
}

func (fakeStreams) List(context.Context) []stream.Runtime { return nil }

func newTestServer(t *testing.T, checks map[string]Check) (*HTTPServer, pkgJwt.Manager) {
	t.Helper()
	mgr, err := pkgJwt.New(pkgJwt.Config{SecretKey: "test-secret-key-0123456789"})
	require.NoError(t, err)

	srv, err := New(pkgLog.NewNop(), Config{
		Port:       8080,
		Mode:       gin.TestMode,
		WebSocket:  fakeHub{},
		Streams:    fakeStreams{},
		JWTManager: mgr,
		Checks:     checks,
	})
	require.NoError(t, err)
	srv.mapHandlers()
	return srv, mgr
}

func get(srv *HTTPServer, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.gin.ServeHTTP(w, req)
	return w
}

func TestNewValidates(t *testing.T) {
	_, err := New(pkgLog.NewNop(), Config{Port: 8080})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := get(srv, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Status    string         `json:"status"`
			Streams   stream.Health  `json:"streams"`
			WebSocket map[string]any `json:"websocket"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Data.Status)
	assert.Equal(t, 1, body.Data.Streams.RunningStreams)
	assert.Equal(t, "nats", body.Data.WebSocket["broker"])
}

func TestReady(t *testing.T) {
	srv, _ := newTestServer(t, map[string]Check{
		"postgres": func(context.Context) error { return nil },
	})
	assert.Equal(t, http.StatusOK, get(srv, "/ready", "").Code)

	srv, _ = newTestServer(t, map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
	})
	assert.Equal(t, http.StatusServiceUnavailable, get(srv, "/ready", "").Code)
}

func TestLive(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusOK, get(srv, "/live", "").Code)
}

func TestStreamRoutesRequireAuth(t *testing.T) {
	srv, mgr := newTestServer(t, nil)
	assert.Equal(t, http.StatusUnauthorized, get(srv, "/api/v1/streams", "").Code)

	token, err := mgr.GenerateToken("u1", "u1@example.com", "admin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(srv, "/api/v1/streams", token).Code)
}
