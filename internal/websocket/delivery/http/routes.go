package http

import (
	"github.com/gin-gonic/gin"

	"logstream-srv/internal/middleware"
)

// RegisterRoutes registers the push endpoint. /ws authenticates inside the
// handler because browsers cannot set headers on a WebSocket handshake.
func (h *Handler) RegisterRoutes(r *gin.Engine, api *gin.RouterGroup, mw middleware.Middleware) {
	r.GET("/ws", h.HandleWebSocket)

	api.GET("/ws/stats", mw.Auth(), h.HandleStats)
}
