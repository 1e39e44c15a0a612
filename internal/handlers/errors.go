package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ciq-assistant/internal/contextutil"
	"ciq-assistant/internal/service"
)

// User-facing error messages.
const (
	msgQueryFailed      = "Sorry, I encountered an error processing your query."
	msgUploadFailed     = "Failed to process uploaded CIQ file."
	msgNoTemplate       = "No standard CIQ template found."
	msgInvalidRequestID = "Invalid request_id"
)

// Error codes returned alongside error messages.
const (
	codeInvalidInput          = "invalid_input"
	codeClassificationFailure = "classification_failure"
	codeRetrievalFailure      = "retrieval_failure"
	codeNoCanonicalTemplate   = "no_canonical_template"
	codeUploadParseFailure    = "upload_parse_failure"
	codeUploadTooLarge        = "upload_too_large"
	codeInvalidRequestID      = "invalid_request_id"
	codeMethodNotAllowed      = "method_not_allowed"
	codeInternal              = "internal"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// handleServiceError maps service errors to HTTP status codes and responses.
// defaultMsg is shown for anything that is not a validation or request error.
func handleServiceError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "service error", "error", err)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s %s", validationErr.Field, validationErr.Message), codeInvalidInput)
		return
	}

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d bytes", maxBytesErr.Limit), codeUploadTooLarge)
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid input", codeInvalidInput)
	case errors.Is(err, service.ErrInvalidRequestID):
		writeError(w, http.StatusBadRequest, msgInvalidRequestID, codeInvalidRequestID)
	case errors.Is(err, service.ErrUploadParseFailure):
		writeError(w, http.StatusBadRequest, msgUploadFailed, codeUploadParseFailure)
	case errors.Is(err, service.ErrNoCanonicalTemplate):
		writeError(w, http.StatusInternalServerError, msgNoTemplate, codeNoCanonicalTemplate)
	case errors.Is(err, service.ErrClassificationFailure):
		writeError(w, http.StatusInternalServerError, defaultMsg, codeClassificationFailure)
	case errors.Is(err, service.ErrRetrievalFailure):
		writeError(w, http.StatusInternalServerError, defaultMsg, codeRetrievalFailure)
	default:
		writeError(w, http.StatusInternalServerError, defaultMsg, codeInternal)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// writeJSON writes v with status 200.
func writeJSON(w http.ResponseWriter, ctx context.Context, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
