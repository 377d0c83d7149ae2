package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgJwt "logstream-srv/pkg/jwt"
	pkgLog "logstream-srv/pkg/log"
)

func newTestRouter(t *testing.T) (*gin.Engine, pkgJwt.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr, err := pkgJwt.New(pkgJwt.Config{SecretKey: "test-secret-key-0123456789", Issuer: "logstream"})
	require.NoError(t, err)

	mw := New(pkgLog.NewNop(), mgr, "logstream_auth_token")
	r := gin.New()
	r.Use(Recovery(pkgLog.NewNop(), nil))
	r.GET("/me", mw.Auth(), func(c *gin.Context) {
		c.String(http.StatusOK, pkgJwt.GetUserIDFromContext(c.Request.Context()))
	})
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	return r, mgr
}

func TestAuth(t *testing.T) {
	r, mgr := newTestRouter(t)
	token, err := mgr.GenerateToken("user-1", "u@example.com", "user")
	require.NoError(t, err)

	cases := []struct {
		name   string
		setup  func(req *http.Request)
		status int
		body   string
	}{
		{"bearer header", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, "user-1"},
		{"cookie", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: "logstream_auth_token", Value: token})
		}, http.StatusOK, "user-1"},
		{"missing", func(req *http.Request) {}, http.StatusUnauthorized, ""},
		{"wrong scheme", func(req *http.Request) { req.Header.Set("Authorization", "Basic "+token) }, http.StatusUnauthorized, ""},
		{"garbage token", func(req *http.Request) { req.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://app.example.com", "*.example.org"}

	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://api.example.org")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://api.example.org", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
