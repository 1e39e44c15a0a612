package handlers

import (
	"encoding/json"
	"net/http"

	"ciq-assistant/internal/contextutil"
	"ciq-assistant/internal/service"
)

// ConfirmHandler resolves pending canonical template updates.
type ConfirmHandler struct {
	schemaService service.SchemaService
}

// NewConfirmHandler creates a new ConfirmHandler.
func NewConfirmHandler(schemaService service.SchemaService) *ConfirmHandler {
	return &ConfirmHandler{schemaService: schemaService}
}

// ConfirmRequest represents the JSON payload for a confirmation.
type ConfirmRequest struct {
	RequestID string `json:"request_id"`
	Decision  string `json:"decision"`
}

// ConfirmResponse represents the outcome of a confirmation.
type ConfirmResponse struct {
	Status       string   `json:"status"`
	Message      string   `json:"message"`
	AddedColumns []string `json:"added_columns"`
}

// ServeHTTP handles POST /confirm-update.
func (h *ConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", codeMethodNotAllowed)
		return
	}

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body", codeInvalidInput)
		return
	}

	res, err := h.schemaService.Confirm(ctx, req.RequestID, req.Decision)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to update the standard CIQ template.")
		return
	}

	added := res.AddedColumns
	if added == nil {
		added = []string{}
	}
	writeJSON(w, ctx, ConfirmResponse{
		Status:       res.Status,
		Message:      res.Message,
		AddedColumns: added,
	})
}
