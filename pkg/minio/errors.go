package minio

import (
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
)

const (
	// ErrCodeConnection indicates a connection error occurred.
	ErrCodeConnection = "CONNECTION_ERROR"
	// ErrCodeBucketNotFound indicates the requested bucket does not exist.
	ErrCodeBucketNotFound = "BUCKET_NOT_FOUND"
	// ErrCodePermission indicates a permission denied error.
	ErrCodePermission = "PERMISSION_DENIED"
	// ErrCodeInvalidInput indicates invalid input parameters.
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// StorageError represents an error that occurred during a MinIO storage operation.
type StorageError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Operation string `json:"operation"`
	Cause     error  `json:"-"`
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewConnectionError creates a new StorageError for connection failures.
func NewConnectionError(err error) *StorageError {
	return &StorageError{Code: ErrCodeConnection, Message: "Storage connection failed", Cause: err}
}

// NewInvalidInputError creates a new StorageError for invalid input.
func NewInvalidInputError(message string) *StorageError {
	return &StorageError{Code: ErrCodeInvalidInput, Message: message}
}

// handleMinIOError converts minio-go errors to StorageError.
func handleMinIOError(err error, operation string) *StorageError {
	if err == nil {
		return nil
	}

	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchBucket":
			return &StorageError{Code: ErrCodeBucketNotFound, Message: "Bucket not found: " + resp.BucketName, Operation: operation, Cause: err}
		case "AccessDenied":
			return &StorageError{Code: ErrCodePermission, Message: "Access denied", Operation: operation, Cause: err}
		default:
			return &StorageError{
				Code:      ErrCodeConnection,
				Message:   fmt.Sprintf("MinIO operation failed: %s", resp.Code),
				Operation: operation,
				Cause:     err,
			}
		}
	}

	se := NewConnectionError(err)
	se.Operation = operation
	return se
}
