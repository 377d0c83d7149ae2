package http

import (
	"logstream-srv/internal/processor"
	"logstream-srv/internal/stream"
	"logstream-srv/pkg/discord"
	pkgLog "logstream-srv/pkg/log"
)

type Handler struct {
	l    pkgLog.Logger
	uc   stream.UseCase
	proc processor.UseCase
	d    discord.IDiscord
}

// New builds the operational handler. proc and d may be nil.
func New(l pkgLog.Logger, uc stream.UseCase, proc processor.UseCase, d discord.IDiscord) *Handler {
	return &Handler{
		l:    l,
		uc:   uc,
		proc: proc,
		d:    d,
	}
}
