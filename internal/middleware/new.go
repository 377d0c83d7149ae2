package middleware

import (
	pkgJwt "logstream-srv/pkg/jwt"
	pkgLog "logstream-srv/pkg/log"
)

type Middleware struct {
	l          pkgLog.Logger
	jwtManager pkgJwt.Manager
	cookieName string
}

func New(l pkgLog.Logger, jwtManager pkgJwt.Manager, cookieName string) Middleware {
	return Middleware{
		l:          l,
		jwtManager: jwtManager,
		cookieName: cookieName,
	}
}
