package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"ciq-assistant/internal/contextutil"
	"ciq-assistant/internal/service"
)

// DefaultMaxUploadBytes caps request bodies on /query.
const DefaultMaxUploadBytes int64 = 32 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// QueryHandler answers questions and standardizes uploaded CIQ workbooks.
type QueryHandler struct {
	queryService   service.QueryService
	schemaService  service.SchemaService
	maxUploadBytes int64
}

// NewQueryHandler creates a new QueryHandler. maxUploadBytes <= 0 uses DefaultMaxUploadBytes.
func NewQueryHandler(queryService service.QueryService, schemaService service.SchemaService, maxUploadBytes int64) *QueryHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &QueryHandler{
		queryService:   queryService,
		schemaService:  schemaService,
		maxUploadBytes: maxUploadBytes,
	}
}

// QueryRequest represents the JSON payload for a question.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse represents an answered question.
type QueryResponse struct {
	Response string `json:"response"`
	Category string `json:"category"`
	Source   string `json:"source,omitempty"`
}

// StandardizeResponse represents a standardized upload.
type StandardizeResponse struct {
	RequestID string `json:"request_id,omitempty"`
	// StandardizedFile and StandardizedFileBase64 both carry the base64 .xlsx.
	StandardizedFile       string             `json:"standardized_file"`
	StandardizedFileBase64 string             `json:"standardized_file_base64"`
	UnmatchedColumns       []string           `json:"unmatched_columns"`
	Mapping                map[string]*string `json:"mapping"`
	Message                string             `json:"message"`
	Response               string             `json:"response"`
}

// ServeHTTP handles POST /query with either a JSON body or a multipart upload.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", codeMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		h.serveMultipart(w, r)
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body", codeInvalidInput)
		return
	}
	h.ask(w, r, req.Query, req.SessionID)
}

func (h *QueryHandler) serveMultipart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		logger.WarnContext(ctx, "invalid multipart body", "error", err)
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			handleServiceError(w, ctx, err, msgUploadFailed)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart body", codeInvalidInput)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	query := r.FormValue("query")
	sessionID := r.FormValue("session_id")

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		h.ask(w, r, query, sessionID)
		return
	}
	if err != nil {
		logger.WarnContext(ctx, "failed to open uploaded file", "error", err)
		writeError(w, http.StatusBadRequest, msgUploadFailed, codeUploadParseFailure)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	if !wantsStandardization(query) {
		logger.InfoContext(ctx, "file ignored, answering query", "filename", header.Filename)
		h.ask(w, r, query, sessionID)
		return
	}

	logger.InfoContext(ctx, "standardizing upload", "filename", header.Filename, "size", header.Size)
	res, err := h.schemaService.Standardize(ctx, file)
	if err != nil {
		handleServiceError(w, ctx, err, msgUploadFailed)
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="standardized_ciq.xlsx"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(res.Workbook)))
		if res.RequestID != "" {
			w.Header().Set("X-Request-ID", res.RequestID)
		}
		w.Header().Set("X-Unmatched-Columns", strings.Join(res.Unmatched, ","))
		if _, err := w.Write(res.Workbook); err != nil {
			logger.ErrorContext(ctx, "failed to write workbook", "error", err)
		}
		return
	}

	encoded := base64.StdEncoding.EncodeToString(res.Workbook)
	unmatched := res.Unmatched
	if unmatched == nil {
		unmatched = []string{}
	}
	resp := StandardizeResponse{
		RequestID:              res.RequestID,
		StandardizedFile:       encoded,
		StandardizedFileBase64: encoded,
		UnmatchedColumns:       unmatched,
		Mapping:                res.Mapping.Targets,
		Message:                "All uploaded columns matched the standard CIQ template.",
		Response:               fmt.Sprintf("CIQ standardized successfully. Found %d unmatched columns.", len(unmatched)),
	}
	if len(unmatched) > 0 {
		resp.Message = "Do you want to update the standard CIQ template with unmatched columns?"
	}
	writeJSON(w, ctx, resp)
}

func (h *QueryHandler) ask(w http.ResponseWriter, r *http.Request, query, sessionID string) {
	ctx := r.Context()
	if sessionID == "" {
		sessionID = contextutil.SessionIDFromContext(ctx)
	}

	resp, err := h.queryService.Ask(ctx, service.QueryRequest{
		SessionID: sessionID,
		Query:     query,
	})
	if err != nil {
		handleServiceError(w, ctx, err, msgQueryFailed)
		return
	}

	writeJSON(w, ctx, QueryResponse{
		Response: resp.Answer,
		Category: resp.Category.String(),
		Source:   resp.Source,
	})
}

// wantsStandardization reports whether an upload's accompanying query asks
// for standardization. An upload with no query is always standardized.
func wantsStandardization(query string) bool {
	q := strings.TrimSpace(query)
	return q == "" || strings.Contains(strings.ToLower(q), "standard")
}
