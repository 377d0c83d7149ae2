package http

import (
	"github.com/gin-gonic/gin"

	"logstream-srv/internal/middleware"
)

func (h *Handler) RegisterRoutes(api *gin.RouterGroup, mw middleware.Middleware) {
	g := api.Group("/streams", mw.Auth())

	g.GET("", h.List)
	g.GET("/health", h.Health)
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Detail)
	g.POST("/:id/start", h.Start)
	g.POST("/:id/stop", h.Stop)
	g.POST("/:id/pause", h.Pause)
	g.POST("/:id/resume", h.Resume)
	g.DELETE("/:id", h.Remove)
}
