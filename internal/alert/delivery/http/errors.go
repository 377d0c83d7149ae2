package http

import (
	"net/http"

	"logstream-srv/internal/alert"
	pkgErrors "logstream-srv/pkg/errors"
	"logstream-srv/pkg/response"
)

var (
	errWrongBody     = pkgErrors.NewHTTPError(140001, "Wrong body", http.StatusBadRequest)
	errAlertNotFound = pkgErrors.NewNotFoundHTTPError(140002, "Alert not found")
)

var errMap = response.ErrorMapping{
	alert.ErrInvalidInput: errWrongBody,
}
