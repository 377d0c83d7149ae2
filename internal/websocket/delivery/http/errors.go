package http

import (
	"net/http"

	ws "logstream-srv/internal/websocket"
	pkgErrors "logstream-srv/pkg/errors"
	"logstream-srv/pkg/response"
)

var (
	errMissingToken   = pkgErrors.NewHTTPError(120001, "Missing authentication token", http.StatusUnauthorized)
	errInvalidToken   = pkgErrors.NewHTTPError(120002, "Invalid or expired token", http.StatusUnauthorized)
	errInvalidRequest = pkgErrors.NewHTTPError(120003, "Invalid upgrade request", http.StatusBadRequest)
)

var errMap = response.ErrorMapping{
	ws.ErrMissingToken:   errMissingToken,
	ws.ErrInvalidToken:   errInvalidToken,
	ws.ErrInvalidMessage: errInvalidRequest,
}
