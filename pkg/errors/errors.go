package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error surfaced by the ingest core.
type Kind string

const (
	// KindDuplicate indicates the item already exists in the library.
	// Expected during normal operation, not a bug.
	KindDuplicate Kind = "DUPLICATE"
	// KindExtraction indicates the extractor could not produce a file.
	KindExtraction Kind = "EXTRACTION"
	// KindIO indicates a local filesystem failure.
	KindIO Kind = "IO"
	// KindStore indicates a storage-layer failure not otherwise classified.
	KindStore Kind = "STORE"
	// KindNotFound indicates a requested record does not exist.
	KindNotFound Kind = "NOT_FOUND"
)

// CollisionAxis identifies which uniqueness rule a duplicate violated.
type CollisionAxis string

const (
	CollisionURL  CollisionAxis = "url"
	CollisionHash CollisionAxis = "hash"
)

// AppError is the error type crossing component boundaries.
type AppError struct {
	Kind    Kind
	Message string
	Err     error

	// Duplicate details, set when Kind == KindDuplicate.
	Axis       CollisionAxis
	ExistingID int64
}

// Error returns the error message.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new application error.
func New(kind Kind, message string) error {
	return &AppError{Kind: kind, Message: message}
}

// Wrap wraps an error with an application error.
func Wrap(kind Kind, message string, err error) error {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// Duplicate creates a duplicate error identifying the violated axis and,
// when known, the conflicting record.
func Duplicate(axis CollisionAxis, existingID int64, message string) error {
	return &AppError{
		Kind:       KindDuplicate,
		Message:    message,
		Axis:       axis,
		ExistingID: existingID,
	}
}

// Extraction creates an extraction error.
func Extraction(message string, err error) error {
	return Wrap(KindExtraction, message, err)
}

// IO creates a filesystem error.
func IO(message string, err error) error {
	return Wrap(KindIO, message, err)
}

// Store creates a storage error.
func Store(message string, err error) error {
	return Wrap(KindStore, message, err)
}

// NotFound creates a not found error.
func NotFound(message string) error {
	return New(KindNotFound, message)
}

func is(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// IsDuplicate checks if an error is a duplicate error.
func IsDuplicate(err error) bool { return is(err, KindDuplicate) }

// IsExtraction checks if an error is an extraction error.
func IsExtraction(err error) bool { return is(err, KindExtraction) }

// IsIO checks if an error is a filesystem error.
func IsIO(err error) bool { return is(err, KindIO) }

// IsStore checks if an error is a storage error.
func IsStore(err error) bool { return is(err, KindStore) }

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// DuplicateAxis reports which uniqueness rule a duplicate error violated.
// Returns false when err is not a duplicate error.
func DuplicateAxis(err error) (CollisionAxis, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind == KindDuplicate {
		return appErr.Axis, true
	}
	return "", false
}

// IsUniqueViolation checks if a driver error reports a unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "duplicate entry")
}
