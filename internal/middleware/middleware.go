package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	pkgJwt "logstream-srv/pkg/jwt"
	"logstream-srv/pkg/response"
)

// Auth validates the JWT from the Authorization header, falling back to the
// auth cookie, and stores its payload in the request context.
func (m Middleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := m.extractToken(c)
		if !ok {
			m.l.Warnf(c.Request.Context(), "internal.middleware.Auth: missing or malformed credentials | Path: %s", c.Request.URL.Path)
			response.Unauthorized(c)
			c.Abort()
			return
		}

		payload, err := m.jwtManager.Verify(tokenString)
		if err != nil {
			m.l.Warnf(c.Request.Context(), "internal.middleware.Auth: token verification failed: %v | Path: %s", err, c.Request.URL.Path)
			response.Unauthorized(c)
			c.Abort()
			return
		}

		ctx := pkgJwt.SetPayloadToContext(c.Request.Context(), payload)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func (m Middleware) extractToken(c *gin.Context) (string, bool) {
	const bearerPrefix = "Bearer "

	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			return "", false
		}
		token := strings.TrimSpace(authHeader[len(bearerPrefix):])
		return token, token != ""
	}

	if m.cookieName != "" {
		if cookie, err := c.Cookie(m.cookieName); err == nil && cookie != "" {
			return cookie, true
		}
	}
	return "", false
}
