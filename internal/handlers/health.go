package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ciq-assistant/internal/contextutil"
	"ciq-assistant/internal/document"
	"ciq-assistant/internal/vectorstore"
)

// Pinger reports whether a backing database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	db                 Pinger
	store              vectorstore.Store
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, store vectorstore.Store) *HealthHandler {
	return &HealthHandler{
		db:                 db,
		store:              store,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy", "degraded", or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is degraded or unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// Returns 200 when the database is reachable, 503 otherwise. Collections
// without an index are reported as "empty"; unreadable indexes degrade the
// status without failing the check.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.db.PingContext(checkCtx); err != nil {
		logger.WarnContext(ctx, "database health check failed", "error", err)
		checks["database"] = "error"
		issues = append(issues, "database_unavailable")
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	for _, c := range document.Collections {
		result := h.checkIndex(checkCtx, logger, c)
		checks["index_"+string(c)] = result
		if result == "error" {
			issues = append(issues, "index_"+string(c)+"_unreadable")
			if status == "healthy" {
				status = "degraded"
			}
		}
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if len(issues) > 0 {
		response.Issues = issues
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}

// checkIndex reports "ok", "empty" or "error" for a collection's index.
func (h *HealthHandler) checkIndex(ctx context.Context, logger *slog.Logger, c document.Collection) string {
	index, err := h.store.Open(ctx, c)
	if errors.Is(err, vectorstore.ErrIndexNotFound) {
		return "empty"
	}
	if err != nil {
		logger.WarnContext(ctx, "index health check failed", "collection", c, "error", err)
		return "error"
	}
	if index.Len() == 0 {
		return "empty"
	}
	return "ok"
}
