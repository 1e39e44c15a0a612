// Package document turns the files of a collection folder into text
// documents ready for embedding.
package document

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ciq-assistant/internal/contextutil"
	"ciq-assistant/internal/table"
)

// previewRows is the number of data rows rendered per sheet.
const previewRows = 5

// BackupMarker appears in the file name of every canonical template backup.
const BackupMarker = "_backup_"

// Loader reads collection folders into Documents.
type Loader struct {
	markdown *MarkdownText
}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{markdown: NewMarkdownText()}
}

// LoadCollection loads every eligible file in folder as a Document of
// collection c. Files are visited in lexical order. A file that cannot be
// read is skipped and reported in the returned LoadError slice; it never
// aborts the rest of the folder. A missing folder yields no documents.
func (l *Loader) LoadCollection(ctx context.Context, c Collection, folder string) ([]Document, []LoadError) {
	logger := contextutil.LoggerFromContext(ctx).With("collection", c, "folder", folder)

	var paths []string
	var err error
	if c.Spreadsheet() {
		paths, err = ListWorkbooks(folder)
	} else {
		paths, err = listFiles(folder)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.WarnContext(ctx, "collection folder does not exist")
			return nil, nil
		}
		return nil, []LoadError{{Path: folder, Err: err}}
	}

	var docs []Document
	var loadErrs []LoadError
	for _, path := range paths {
		if ctx.Err() != nil {
			loadErrs = append(loadErrs, LoadError{Path: path, Err: ctx.Err()})
			break
		}

		var content string
		var err error
		if c.Spreadsheet() {
			content, err = l.loadWorkbook(path)
		} else {
			content, err = l.loadText(path)
		}
		if err != nil {
			logger.WarnContext(ctx, "skipping unreadable file", "path", path, "error", err)
			loadErrs = append(loadErrs, LoadError{Path: path, Err: err})
			continue
		}

		docs = append(docs, Document{
			Content:    content,
			Collection: c,
			SourcePath: path,
		})
	}

	logger.DebugContext(ctx, "collection loaded", "documents", len(docs), "errors", len(loadErrs))
	return docs, loadErrs
}

// loadWorkbook renders "[name]" followed by each sheet's header and first rows as CSV.
func (l *Loader) loadWorkbook(path string) (string, error) {
	sheets, err := table.ReadSheets(path)
	if err != nil {
		return "", err
	}

	parts := []string{"[" + filepath.Base(path) + "]"}
	for _, s := range sheets {
		preview, err := s.Table.HeadCSV(previewRows)
		if err != nil {
			return "", fmt.Errorf("sheet %q: %w", s.Name, err)
		}
		parts = append(parts, "Sheet: "+s.Name+"\n"+preview)
	}
	return strings.Join(parts, "\n"), nil
}

func (l *Loader) loadText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	var body string
	if strings.EqualFold(filepath.Ext(path), ".md") {
		body = l.markdown.PlainText(raw)
	} else {
		body = strings.ToValidUTF8(string(raw), "")
	}
	return "[" + filepath.Base(path) + "]\n" + body, nil
}

// ListWorkbooks returns the .xlsx files in folder in lexical order, skipping
// backups and hidden or temporary files.
func ListWorkbooks(folder string) ([]string, error) {
	files, err := listFiles(folder)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range files {
		name := filepath.Base(p)
		if !strings.EqualFold(filepath.Ext(name), ".xlsx") || IsBackup(name) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// IsBackup reports whether a file name is a canonical template backup.
func IsBackup(name string) bool {
	return strings.Contains(filepath.Base(name), BackupMarker)
}

// listFiles returns the regular, non-hidden files directly inside folder, sorted.
func listFiles(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, filepath.Join(folder, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
