package response

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"logstream-srv/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/streams/x", nil)
	return c, w
}

func TestErrorWithMapMatchesWrapped(t *testing.T) {
	errNotFound := stderrors.New("stream not found")
	c, w := newTestContext()

	ErrorWithMap(c, fmt.Errorf("status: %w", errNotFound), ErrorMapping{
		errNotFound: errors.NewNotFoundHTTPError(120404, "Stream not found"),
	}, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp Resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 120404, resp.ErrorCode)
	assert.Equal(t, "Stream not found", resp.Message)
}

func TestErrorUnknownIsInternal(t *testing.T) {
	c, w := newTestContext()
	Error(c, stderrors.New("db down"), nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), DefaultErrorMessage)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestSplitMessageForDiscord(t *testing.T) {
	long := strings.Repeat("a", DiscordMaxMessageLen+10)
	chunks := splitMessageForDiscord("head\n" + long)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), DiscordMaxMessageLen)
	}
	assert.Equal(t, "head", chunks[0])
}
