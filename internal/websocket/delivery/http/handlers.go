package http

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"logstream-srv/internal/auth"
	ws "logstream-srv/internal/websocket"
	"logstream-srv/pkg/response"
)

// HandleWebSocket authenticates the request, upgrades it and hands the
// socket to the hub.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := h.processUpgradeRequest(c)
	if err != nil {
		response.ErrorWithMap(c, err, errMap, nil)
		c.Abort()
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		h.l.Warnf(ctx, "internal.websocket.delivery.http.HandleWebSocket.Upgrade: %v", err)
		return
	}

	_, err = h.uc.Connect(ctx, ws.ConnectInput{
		Transport: conn,
		UserID:    userID,
		Metadata: map[string]string{
			"remote_addr": c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		},
	})
	if err != nil {
		h.l.Warnf(ctx, "internal.websocket.delivery.http.HandleWebSocket.Connect: user=%s: %v", userID, err)
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode(err), closeReason(err)))
		_ = conn.Close()
	}
}

// HandleStats returns hub counters.
func (h *Handler) HandleStats(c *gin.Context) {
	response.OK(c, newStatsResp(h.uc.GetStats(c.Request.Context())))
}

func closeCode(err error) int {
	switch {
	case auth.IsRateLimitError(err):
		return websocket.ClosePolicyViolation
	case errors.Is(err, ws.ErrMaxConnectionsReached):
		return websocket.CloseTryAgainLater
	case errors.Is(err, ws.ErrConnectionClosed):
		return websocket.CloseGoingAway
	default:
		return websocket.CloseInternalServerErr
	}
}

func closeReason(err error) string {
	switch {
	case auth.IsRateLimitError(err):
		return "connection limit exceeded"
	case errors.Is(err, ws.ErrMaxConnectionsReached):
		return "server at capacity"
	case errors.Is(err, ws.ErrConnectionClosed):
		return "server shutting down"
	default:
		return "internal error"
	}
}
