package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no product matches the requested id.
	ErrNotFound = errors.New("product not found")

	// ErrConflict is returned when a name collides case-insensitively with
	// another product.
	ErrConflict = errors.New("name already exists")
)

// ValidationError represents a single invalid or missing request field.
type ValidationError struct {
	Field   string // Field name, empty for whole-request problems
	Value   string // The invalid value, if any
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UploadRejectedError is returned when an uploaded file fails type or size checks.
type UploadRejectedError struct {
	Code   string // FILE001, FILE004, FILE006
	Reason string
}

func (e *UploadRejectedError) Error() string {
	return e.Reason
}

// Upload rejection codes.
const (
	CodeFileTooLarge    = "FILE001"
	CodeNoFile          = "FILE004"
	CodeUnsupportedType = "FILE006"
)

// RejectUpload builds an UploadRejectedError.
func RejectUpload(code, format string, args ...any) *UploadRejectedError {
	return &UploadRejectedError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// StorageError wraps a failure of the underlying data store with the
// operation that was running.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr wraps err unless it is already part of the domain taxonomy.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorage reports whether err is a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsUploadRejected reports whether err is an UploadRejectedError.
func IsUploadRejected(err error) bool {
	var ue *UploadRejectedError
	return errors.As(err, &ue)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
