package http

import (
	"logstream-srv/internal/alert"
	"logstream-srv/pkg/discord"
	pkgLog "logstream-srv/pkg/log"
)

type Handler struct {
	l  pkgLog.Logger
	uc alert.UseCase
	d  discord.IDiscord
}

func New(l pkgLog.Logger, uc alert.UseCase, d discord.IDiscord) *Handler {
	return &Handler{l: l, uc: uc, d: d}
}
