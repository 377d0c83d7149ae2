package stream

import "errors"

var (
	ErrNotFound       = errors.New("connection not found")
	ErrNotRunning     = errors.New("stream is not running")
	ErrStarting       = errors.New("stream is still starting")
	ErrShuttingDown   = errors.New("stream manager is shutting down")
	ErrTestConnection = errors.New("source connection test failed")
	ErrCredentials    = errors.New("connection credentials cannot be opened")
	ErrCeiling        = errors.New("too many consecutive failures")
)
