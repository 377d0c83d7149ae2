package http

import (
	"net/http"

	"logstream-srv/internal/source"
	"logstream-srv/internal/stream"
	pkgErrors "logstream-srv/pkg/errors"
	"logstream-srv/pkg/response"
)

var (
	errWrongBody       = pkgErrors.NewHTTPError(130001, "Wrong body", http.StatusBadRequest)
	errNotFound        = pkgErrors.NewNotFoundHTTPError(130002, "Connection not found")
	errNotRunning      = pkgErrors.NewConflictHTTPError(130003, "Stream is not running")
	errStarting        = pkgErrors.NewConflictHTTPError(130004, "Stream is still starting")
	errShuttingDown    = pkgErrors.NewHTTPError(130005, "Server is shutting down", http.StatusServiceUnavailable)
	errTestConnection  = pkgErrors.NewHTTPError(130006, "Source connection test failed", http.StatusBadGateway)
	errCredentials     = pkgErrors.NewHTTPError(130007, "Connection credentials cannot be opened", http.StatusUnprocessableEntity)
	errUnknownProvider = pkgErrors.NewHTTPError(130008, "Unknown log provider", http.StatusUnprocessableEntity)
)

var errMap = response.ErrorMapping{
	stream.ErrNotFound:        errNotFound,
	stream.ErrNotRunning:      errNotRunning,
	stream.ErrStarting:        errStarting,
	stream.ErrShuttingDown:    errShuttingDown,
	stream.ErrTestConnection:  errTestConnection,
	stream.ErrCredentials:     errCredentials,
	source.ErrUnknownProvider: errUnknownProvider,
}
