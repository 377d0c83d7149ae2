package http

import (
	"github.com/gorilla/websocket"

	"logstream-srv/internal/auth"
	ws "logstream-srv/internal/websocket"
	pkgJwt "logstream-srv/pkg/jwt"
	pkgLog "logstream-srv/pkg/log"
)

type Handler struct {
	uc       ws.UseCase
	jwtMgr   pkgJwt.Manager
	l        pkgLog.Logger
	security *auth.SecurityLogger
	cookie   CookieConfig
	upgrader websocket.Upgrader
}

func New(l pkgLog.Logger, uc ws.UseCase, jwtMgr pkgJwt.Manager, wsCfg WSConfig, cookieCfg CookieConfig) *Handler {
	return &Handler{
		uc:       uc,
		jwtMgr:   jwtMgr,
		l:        l,
		security: auth.NewSecurityLogger(l),
		cookie:   cookieCfg,
		upgrader: createUpgrader(wsCfg),
	}
}
