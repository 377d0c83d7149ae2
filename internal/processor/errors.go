package processor

import "errors"

var (
	ErrInvalidInput = errors.New("processor: connection id, project id and user id are required")
	ErrPersist      = errors.New("processor: batch could not be persisted")
)
