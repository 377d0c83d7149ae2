package http

import (
	"github.com/gin-gonic/gin"

	"logstream-srv/internal/middleware"
)

func (h *Handler) RegisterRoutes(api *gin.RouterGroup, mw middleware.Middleware) {
	api.POST("/alerts/:id/read", mw.Auth(), h.MarkRead)
	api.POST("/projects/:id/alert-rules/invalidate", mw.Auth(), h.InvalidateRules)
}
