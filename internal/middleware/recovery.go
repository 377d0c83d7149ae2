package middleware

import (
	"github.com/gin-gonic/gin"

	"logstream-srv/pkg/discord"
	pkgLog "logstream-srv/pkg/log"
	"logstream-srv/pkg/response"
)

// Recovery turns panics into a 500 response and reports them to Discord
// when a client is configured.
func Recovery(l pkgLog.Logger, discordClient discord.IDiscord) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				ctx := c.Request.Context()
				l.Errorf(ctx, "internal.middleware.Recovery: panic recovered: %v | Method: %s | Path: %s",
					err, c.Request.Method, c.Request.URL.Path)

				response.PanicError(c, err, discordClient)
				c.Abort()
			}
		}()
		c.Next()
	}
}
