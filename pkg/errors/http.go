package errors

import "net/http"

// HTTPError is a domain error already mapped to a transport status.
type HTTPError struct {
	Code       int
	Message    string
	StatusCode int
}

// NewHTTPError returns a new HTTPError. A zero statusCode means 400.
func NewHTTPError(code int, message string, statusCode int) *HTTPError {
	if statusCode == 0 {
		statusCode = http.StatusBadRequest
	}
	return &HTTPError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewUnauthorizedHTTPError returns a 401 error.
func NewUnauthorizedHTTPError() *HTTPError {
	return &HTTPError{Code: http.StatusUnauthorized, Message: "Unauthorized", StatusCode: http.StatusUnauthorized}
}

// NewNotFoundHTTPError returns a 404 error carrying message.
func NewNotFoundHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message, StatusCode: http.StatusNotFound}
}

// NewConflictHTTPError returns a 409 error carrying message.
func NewConflictHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message, StatusCode: http.StatusConflict}
}

func (e *HTTPError) Error() string {
	return e.Message
}
