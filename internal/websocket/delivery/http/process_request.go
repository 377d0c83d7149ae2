package http

import (
	"github.com/gin-gonic/gin"

	ws "logstream-srv/internal/websocket"
)

// processUpgradeRequest authenticates the upgrade. The token comes from the
// token query parameter or, when absent, from the auth cookie.
func (h *Handler) processUpgradeRequest(c *gin.Context) (string, error) {
	var req UpgradeReq
	if err := c.ShouldBindQuery(&req); err != nil {
		return "", ws.ErrInvalidMessage
	}

	if req.Token == "" && h.cookie.Name != "" {
		if cookie, err := c.Cookie(h.cookie.Name); err == nil {
			req.Token = cookie
		}
	}

	if err := req.validate(); err != nil {
		return "", err
	}

	payload, err := h.jwtMgr.Verify(req.Token)
	if err != nil {
		h.security.LogAuthenticationFailure(c.Request.Context(), c.ClientIP(), err.Error())
		return "", ws.ErrInvalidToken
	}
	return payload.UserID, nil
}
