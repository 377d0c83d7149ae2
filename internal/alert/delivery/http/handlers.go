package http

import (
	"github.com/gin-gonic/gin"

	pkgJwt "logstream-srv/pkg/jwt"
	"logstream-srv/pkg/response"
)

// MarkRead flags an alert of the caller as read.
func (h *Handler) MarkRead(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := h.processIDRequest(c)
	if err != nil {
		response.ErrorWithMap(c, err, errMap, nil)
		return
	}

	userID := pkgJwt.GetUserIDFromContext(ctx)
	if userID == "" {
		response.Unauthorized(c)
		return
	}

	ok, err := h.uc.MarkRead(ctx, id, userID)
	if err != nil {
		h.l.Errorf(ctx, "internal.alert.delivery.http.MarkRead: alert=%s: %v", id, err)
		response.ErrorWithMap(c, err, errMap, h.d)
		return
	}
	if !ok {
		response.Error(c, errAlertNotFound, nil)
		return
	}
	response.OK(c, markReadResp{AlertID: id, IsRead: true})
}

// InvalidateRules drops the cached rules of a project after they changed.
func (h *Handler) InvalidateRules(c *gin.Context) {
	id, err := h.processIDRequest(c)
	if err != nil {
		response.ErrorWithMap(c, err, errMap, nil)
		return
	}
	h.uc.InvalidateRules(id)
	response.OK(c, invalidateResp{ProjectID: id})
}

func (h *Handler) processIDRequest(c *gin.Context) (string, error) {
	var req idReq
	if err := c.ShouldBindUri(&req); err != nil {
		return "", errWrongBody
	}
	if err := req.validate(); err != nil {
		return "", err
	}
	return req.ID, nil
}
