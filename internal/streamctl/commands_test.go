package streamctl

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, func() []recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		reqs = append(reqs, recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, auth: r.Header.Get("Authorization")})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), reqs...)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandsHitEndpoints(t *testing.T) {
	cases := []struct {
		args   []string
		method string
		path   string
		query  string
	}{
		{[]string{"list", "--page", "2"}, http.MethodGet, "/api/v1/streams", "page=2&limit=15"},
		{[]string{"health"}, http.MethodGet, "/api/v1/streams/health", ""},
		{[]string{"stats"}, http.MethodGet, "/api/v1/streams/stats", ""},
		{[]string{"get", "c1"}, http.MethodGet, "/api/v1/streams/c1", ""},
		{[]string{"start", "c1"}, http.MethodPost, "/api/v1/streams/c1/start", ""},
		{[]string{"stop", "c1"}, http.MethodPost, "/api/v1/streams/c1/stop", ""},
		{[]string{"pause", "c1"}, http.MethodPost, "/api/v1/streams/c1/pause", ""},
		{[]string{"resume", "c1"}, http.MethodPost, "/api/v1/streams/c1/resume", ""},
		{[]string{"remove", "c1"}, http.MethodDelete, "/api/v1/streams/c1", ""},
	}
	for _, tc := range cases {
		t.Run(tc.args[0], func(t *testing.T) {
			srv, reqs := newServer(t, http.StatusOK, `{"error_code":0,"message":"Success","data":{"ok":true}}`)

			out, err := execute(t, append(tc.args, "--server", srv.URL, "--token", "tok")...)
			require.NoError(t, err)
			assert.Equal(t, "{\n  \"ok\": true\n}\n", out)

			got := reqs()
			require.Len(t, got, 1)
			assert.Equal(t, recorded{method: tc.method, path: tc.path, query: tc.query, auth: "Bearer tok"}, got[0])
		})
	}
}

func TestCommandReportsAPIError(t *testing.T) {
	srv, _ := newServer(t, http.StatusConflict, `{"error_code":130003,"message":"Stream is not running"}`)

	_, err := execute(t, "stop", "c1", "--server", srv.URL)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, 130003, apiErr.Code)
	assert.Equal(t, "Stream is not running", apiErr.Message)
}

func TestCommandRequiresID(t *testing.T) {
	_, err := execute(t, "start")
	assert.Error(t, err)
}
