package http

import (
	"github.com/gin-gonic/gin"
)

func (h *Handler) processIDRequest(c *gin.Context) (string, error) {
	var req idReq
	if err := c.ShouldBindUri(&req); err != nil {
		h.l.Warnf(c.Request.Context(), "internal.stream.delivery.http.processIDRequest.ShouldBindUri: %v", err)
		return "", errWrongBody
	}
	if err := req.validate(); err != nil {
		return "", err
	}
	return req.ID, nil
}
