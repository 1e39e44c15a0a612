package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_schema_service.go -package=mocks ciq-assistant/internal/service SchemaService,IndexBuilder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ciq-assistant/internal/contextutil"
	"ciq-assistant/internal/document"
	"ciq-assistant/internal/indexer"
	"ciq-assistant/internal/schema"
	"ciq-assistant/internal/storage"
	"ciq-assistant/internal/table"
)

// Confirmation outcomes.
const (
	StatusUpdated = "updated"
	StatusSkipped = "skipped"
)

// backupLayout timestamps canonical template backups to the nanosecond.
const backupLayout = "20060102_150405.000000000"

// IndexBuilder rebuilds one collection's index.
type IndexBuilder interface {
	BuildCollection(ctx context.Context, c document.Collection) (*indexer.CollectionStats, error)
}

// StandardizeResult is an uploaded CIQ reshaped to the canonical columns.
type StandardizeResult struct {
	// RequestID identifies the pending template update. Empty when every
	// uploaded column matched.
	RequestID string
	// Workbook is Table encoded as .xlsx.
	Workbook  []byte
	Table     *table.Table
	Unmatched []string
	Mapping   schema.Mapping
	// CanonicalPath is the template the upload was reconciled against.
	CanonicalPath string
}

// ConfirmResult is the outcome of resolving a pending update.
type ConfirmResult struct {
	Status       string
	Message      string
	AddedColumns []string
	BackupPath   string
}

// SchemaService standardizes uploaded CIQ workbooks and evolves the
// canonical template on confirmation.
type SchemaService interface {
	// Standardize reconciles an uploaded workbook against the canonical
	// template. Unmatched columns are held as a pending update.
	Standardize(ctx context.Context, upload io.Reader) (*StandardizeResult, error)
	// Confirm resolves a pending update. Only decision "yes" mutates the
	// canonical template; any decision consumes the update unless writing
	// the template fails.
	Confirm(ctx context.Context, requestID, decision string) (*ConfirmResult, error)
}

// schemaService implements SchemaService.
type schemaService struct {
	embedder     schema.Embedder
	pending      storage.PendingStore
	indexer      IndexBuilder
	canonicalDir string
	threshold    float32

	commitMu sync.Mutex
	now      func() time.Time
	newID    func() string
}

// NewSchemaService creates a new SchemaService. canonicalDir is the
// standard_ciq folder holding the canonical template.
func NewSchemaService(
	embedder schema.Embedder,
	pending storage.PendingStore,
	builder IndexBuilder,
	canonicalDir string,
	threshold float32,
) SchemaService {
	return &schemaService{
		embedder:     embedder,
		pending:      pending,
		indexer:      builder,
		canonicalDir: canonicalDir,
		threshold:    threshold,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// Standardize standardizes an uploaded workbook.
func (s *schemaService) Standardize(ctx context.Context, upload io.Reader) (*StandardizeResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	source, err := table.Read(upload)
	if err != nil {
		logger.WarnContext(ctx, "failed to parse upload", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUploadParseFailure, err)
	}
	if len(source.Columns) == 0 {
		return nil, fmt.Errorf("%w: first sheet has no header row", ErrUploadParseFailure)
	}

	canonicalPath, err := s.canonicalTemplate()
	if err != nil {
		return nil, err
	}
	canonical, err := table.ReadFile(canonicalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read canonical template %s: %w", canonicalPath, err)
	}

	res, err := schema.Standardize(ctx, s.embedder, source, canonical, s.threshold)
	if err != nil {
		logger.ErrorContext(ctx, "failed to map columns", "error", err)
		return nil, WrapError(err, "failed to standardize upload")
	}

	workbook, err := res.Table.Bytes()
	if err != nil {
		return nil, WrapError(err, "failed to encode standardized workbook")
	}

	out := &StandardizeResult{
		Workbook:      workbook,
		Table:         res.Table,
		Unmatched:     res.Unmatched,
		Mapping:       res.Mapping,
		CanonicalPath: canonicalPath,
	}

	if len(res.Unmatched) > 0 {
		out.RequestID = s.newID()
		err := s.pending.Create(ctx, &storage.PendingUpdate{
			ID:               out.RequestID,
			UnmatchedColumns: res.Unmatched,
			Snapshot:         canonical,
			CanonicalPath:    canonicalPath,
			CreatedAt:        s.now(),
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to store pending update", "error", err)
			return nil, WrapError(err, "failed to store pending update")
		}
	}

	logger.InfoContext(ctx, "upload standardized",
		"canonical", canonicalPath,
		"source_columns", len(source.Columns),
		"rows", len(source.Rows),
		"unmatched", len(res.Unmatched),
		"request_id", out.RequestID,
	)
	return out, nil
}

// canonicalTemplate returns the first workbook in the standard_ciq folder.
func (s *schemaService) canonicalTemplate() (string, error) {
	files, err := document.ListWorkbooks(s.canonicalDir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoCanonicalTemplate
	}
	if err != nil {
		return "", fmt.Errorf("failed to list canonical templates: %w", err)
	}
	if len(files) == 0 {
		return "", ErrNoCanonicalTemplate
	}
	return files[0], nil
}

// Confirm resolves a pending update.
func (s *schemaService) Confirm(ctx context.Context, requestID, decision string) (*ConfirmResult, error) {
	logger := contextutil.LoggerFromContext(ctx).With("request_id", requestID)

	if strings.TrimSpace(requestID) == "" {
		return nil, ErrInvalidRequestID
	}

	p, err := s.pending.Take(ctx, requestID)
	if errors.Is(err, storage.ErrNotFound) {
		logger.WarnContext(ctx, "unknown pending update")
		return nil, ErrInvalidRequestID
	}
	if err != nil {
		return nil, WrapError(err, "failed to load pending update")
	}

	if !strings.EqualFold(strings.TrimSpace(decision), "yes") {
		logger.InfoContext(ctx, "pending update discarded", "decision", decision)
		return &ConfirmResult{
			Status:  StatusSkipped,
			Message: "Update skipped as per user decision.",
		}, nil
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	added, backup, err := s.commit(ctx, p)
	if err != nil {
		logger.ErrorContext(ctx, "failed to update canonical template", "error", err)
		// The canonical file is only replaced by rename, so it is unchanged.
		if restoreErr := s.pending.Create(ctx, p); restoreErr != nil {
			logger.ErrorContext(ctx, "failed to restore pending update", "error", restoreErr)
		}
		return nil, err
	}

	if _, err := s.indexer.BuildCollection(ctx, document.CollectionStandardCIQ); err != nil {
		logger.ErrorContext(ctx, "failed to rebuild standard_ciq index", "error", err)
		return nil, WrapError(err, "canonical template updated but reindex failed")
	}

	logger.InfoContext(ctx, "canonical template updated",
		"path", p.CanonicalPath,
		"backup", backup,
		"added_columns", added,
	)
	return &ConfirmResult{
		Status:       StatusUpdated,
		Message:      "Standard CIQ template updated.",
		AddedColumns: added,
		BackupPath:   backup,
	}, nil
}

// commit backs up the canonical template and adds the pending columns to
// it. An existing workbook is edited in place so its other sheets, styles
// and cell types survive; a missing one is recreated from the snapshot.
// Callers hold commitMu.
func (s *schemaService) commit(ctx context.Context, p *storage.PendingUpdate) ([]string, string, error) {
	raw, err := os.ReadFile(p.CanonicalPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "canonical template missing, using snapshot",
			"path", p.CanonicalPath,
		)
		return s.commitSnapshot(p)
	case err != nil:
		return nil, "", WrapError(err, "failed to read canonical template")
	}

	wb, err := table.OpenWorkbook(bytes.NewReader(raw))
	if err != nil {
		return nil, "", WrapError(err, "failed to parse canonical template")
	}
	defer func() {
		_ = wb.Close()
	}()

	added, err := wb.AppendColumns(p.UnmatchedColumns...)
	if err != nil {
		return nil, "", WrapError(err, "failed to add columns to canonical template")
	}

	backup, err := writeBackup(p.CanonicalPath, raw, s.now())
	if err != nil {
		return nil, "", err
	}
	if err := wb.WriteFile(p.CanonicalPath); err != nil {
		return nil, "", WrapError(err, "failed to write canonical template")
	}
	return added, backup, nil
}

func (s *schemaService) commitSnapshot(p *storage.PendingUpdate) ([]string, string, error) {
	previous, err := p.Snapshot.Bytes()
	if err != nil {
		return nil, "", WrapError(err, "failed to encode snapshot")
	}

	current := p.Snapshot.Clone()
	added := []string{}
	for _, col := range p.UnmatchedColumns {
		if current.AddColumn(col) {
			added = append(added, col)
		}
	}

	backup, err := writeBackup(p.CanonicalPath, previous, s.now())
	if err != nil {
		return nil, "", err
	}
	if err := current.WriteFile(p.CanonicalPath); err != nil {
		return nil, "", WrapError(err, "failed to write canonical template")
	}
	return added, backup, nil
}

// BackupPath names the backup of canonicalPath taken at t.
func BackupPath(canonicalPath string, t time.Time) string {
	ext := filepath.Ext(canonicalPath)
	stem := strings.TrimSuffix(canonicalPath, ext)
	return stem + document.BackupMarker + t.Format(backupLayout) + ext
}

// writeBackup writes data beside canonicalPath without overwriting an
// existing backup.
func writeBackup(canonicalPath string, data []byte, t time.Time) (string, error) {
	for {
		path := BackupPath(canonicalPath, t)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			t = t.Add(time.Nanosecond)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create backup: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("failed to close backup: %w", err)
		}
		return path, nil
	}
}
