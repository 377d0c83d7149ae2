package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"logstream-srv/pkg/paginator"
	"logstream-srv/pkg/response"
)

// List pages through the streams that currently have a runtime.
func (h *Handler) List(c *gin.Context) {
	var q paginator.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, errWrongBody, nil)
		return
	}
	response.OK(c, newListResp(h.uc.List(c.Request.Context()), q))
}

// Health summarizes runtime states.
func (h *Handler) Health(c *gin.Context) {
	response.OK(c, h.uc.Health(c.Request.Context()))
}

// Stats returns pipeline counters.
func (h *Handler) Stats(c *gin.Context) {
	if h.proc == nil {
		response.OK(c, statsResp{})
		return
	}
	response.OK(c, newStatsResp(h.proc.Stats()))
}

func (h *Handler) Detail(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := h.processIDRequest(c)
	if err != nil {
		response.ErrorWithMap(c, err, errMap, nil)
		return
	}

	rt, err := h.uc.Status(ctx, id)
	if err != nil {
		response.ErrorWithMap(c, err, errMap, h.d)
		return
	}
	response.OK(c, newStreamResp(rt))
}

func (h *Handler) Start(c *gin.Context) {
	h.action(c, "start", h.uc.Start)
}

func (h *Handler) Stop(c *gin.Context) {
	h.action(c, "stop", h.uc.Stop)
}

func (h *Handler) Pause(c *gin.Context) {
	h.action(c, "pause", h.uc.Pause)
}

func (h *Handler) Resume(c *gin.Context) {
	h.action(c, "resume", h.uc.Resume)
}

func (h *Handler) Remove(c *gin.Context) {
	h.action(c, "remove", h.uc.Remove)
}

func (h *Handler) action(c *gin.Context, name string, fn func(context.Context, string) error) {
	ctx := c.Request.Context()
	id, err := h.processIDRequest(c)
	if err != nil {
		response.ErrorWithMap(c, err, errMap, nil)
		return
	}

	if err := fn(ctx, id); err != nil {
		h.l.Warnf(ctx, "internal.stream.delivery.http.%s: connection=%s: %v", name, id, err)
		response.ErrorWithMap(c, err, errMap, h.d)
		return
	}
	response.OK(c, actionResp{ConnectionID: id, Action: name})
}
