package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logstream-srv/internal/alert"
	pkgJwt "logstream-srv/pkg/jwt"
	pkgLog "logstream-srv/pkg/log"
)

type fakeUseCase struct {
	alert.UseCase

	found       bool
	read        [][2]string
	invalidated []string
}

func (f *fakeUseCase) MarkRead(_ context.Context, alertID, userID string) (bool, error) {
	f.read = append(f.read, [2]string{alertID, userID})
	return f.found, nil
}

func (f *fakeUseCase) InvalidateRules(projectID string) {
	f.invalidated = append(f.invalidated, projectID)
}

func newRouter(uc alert.UseCase, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(pkgLog.NewNop(), uc, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			ctx := pkgJwt.SetPayloadToContext(c.Request.Context(), pkgJwt.Payload{UserID: userID})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	})
	r.POST("/alerts/:id/read", h.MarkRead)
	r.POST("/projects/:id/alert-rules/invalidate", h.InvalidateRules)
	return r
}

func post(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
	return w
}

func TestMarkRead(t *testing.T) {
	uc := &fakeUseCase{found: true}
	w := post(newRouter(uc, "u1"), "/alerts/a1/read")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][2]string{{"a1", "u1"}}, uc.read)

	var body struct {
		Data markReadResp `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.IsRead)
}

func TestMarkReadNotOwned(t *testing.T) {
	w := post(newRouter(&fakeUseCase{}, "u1"), "/alerts/a1/read")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkReadRequiresUser(t *testing.T) {
	uc := &fakeUseCase{found: true}
	w := post(newRouter(uc, ""), "/alerts/a1/read")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, uc.read)
}

func TestInvalidateRules(t *testing.T) {
	uc := &fakeUseCase{}
	w := post(newRouter(uc, "u1"), "/projects/p1/alert-rules/invalidate")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"p1"}, uc.invalidated)
}
