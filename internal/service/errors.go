package service

import (
	"errors"
	"fmt"

	"ciq-assistant/internal/rag"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrClassificationFailure is returned when the router model fails.
	ErrClassificationFailure = rag.ErrClassificationFailure
	// ErrRetrievalFailure is returned when retrieval or answer generation fails.
	ErrRetrievalFailure = rag.ErrRetrievalFailure
	// ErrNoCanonicalTemplate is returned when standard_ciq holds no workbook.
	ErrNoCanonicalTemplate = errors.New("no standard CIQ template found")
	// ErrInvalidRequestID is returned for unknown, consumed or expired pending updates.
	ErrInvalidRequestID = errors.New("invalid request_id")
	// ErrUploadParseFailure is returned when an upload is not a readable spreadsheet.
	ErrUploadParseFailure = errors.New("failed to parse uploaded CIQ file")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
