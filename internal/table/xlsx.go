package table

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet name used for written workbooks.
const DefaultSheet = "Sheet1"

// Sheet is one named sheet of a workbook.
type Sheet struct {
	Name  string
	Table *Table
}

// Read parses the first sheet of an .xlsx workbook.
func Read(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return readFirstSheet(f)
}

// ReadFile parses the first sheet of the workbook at path.
func ReadFile(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	return readFirstSheet(f)
}

// ReadSheets parses every sheet of the workbook at path, in workbook order.
func ReadSheets(path string) ([]Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	names := f.GetSheetList()
	sheets := make([]Sheet, 0, len(names))
	for _, name := range names {
		t, err := readSheet(f, name)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, Sheet{Name: name, Table: t})
	}
	return sheets, nil
}

func readFirstSheet(f *excelize.File) (*Table, error) {
	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return readSheet(f, names[0])
}

func readSheet(f *excelize.File, sheet string) (*Table, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	cells := make([][]Cell, len(rows))
	for r, row := range rows {
		cells[r] = make([]Cell, len(row))
		for c, display := range row {
			if display == "" {
				continue
			}
			cell, err := typedCell(f, sheet, c+1, r+1, display)
			if err != nil {
				return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
			}
			cells[r][c] = cell
		}
	}
	return fromCells(cells), nil
}

// typedCell recovers the stored type of a cell whose formatted text is
// display. Numbers shown with a format that is not itself a plain number
// (dates, percentages, currency) stay text so the display is kept.
func typedCell(f *excelize.File, sheet string, col, row int, display string) (Cell, error) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return Null, err
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return Null, err
	}

	switch typ {
	case excelize.CellTypeBool:
		raw, err := f.GetCellValue(sheet, axis, excelize.Options{RawCellValue: true})
		if err != nil {
			return Null, err
		}
		return Bool(raw == "1" || strings.EqualFold(raw, "true")), nil
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if _, err := strconv.ParseFloat(display, 64); err != nil {
			return String(display), nil
		}
		raw, err := f.GetCellValue(sheet, axis, excelize.Options{RawCellValue: true})
		if err != nil {
			return Null, err
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return String(display), nil
		}
		return Cell{Value: display, Valid: true, Kind: KindNumber, Number: n}, nil
	default:
		return String(display), nil
	}
}

// Write encodes the table as a single-sheet .xlsx workbook.
func (t *Table) Write(w io.Writer) error {
	f, err := t.workbook()
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Bytes returns the table encoded as .xlsx.
func (t *Table) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile replaces path with the encoded table. The workbook is written to
// a temporary file in the same directory and renamed into place, so readers
// see either the old file or the new one.
func (t *Table) WriteFile(path string) error {
	return writeAtomic(path, t.Write)
}

func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath) // no-op after a successful rename
	}()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func (t *Table) workbook() (*excelize.File, error) {
	f := excelize.NewFile()

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(DefaultSheet, "A1", &header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for r, row := range t.Rows {
		values := make([]interface{}, len(row))
		for i, c := range row {
			values[i] = c.value()
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to address row %d: %w", r, err)
		}
		if err := f.SetSheetRow(DefaultSheet, cell, &values); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}
	return f, nil
}

// Workbook is an .xlsx file opened for editing in place. Only the header of
// the first sheet is interpreted; other sheets, styles, formulas and cell
// types are written back as they were read.
type Workbook struct {
	f     *excelize.File
	sheet string
	table *Table
}

// OpenWorkbook reads a workbook for editing. The caller must Close it.
func OpenWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	names := f.GetSheetList()
	if len(names) == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("workbook has no sheets")
	}
	t, err := readSheet(f, names[0])
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Workbook{f: f, sheet: names[0], table: t}, nil
}

// Table returns the first sheet as last read or edited.
func (w *Workbook) Table() *Table {
	return w.table
}

// AppendColumns writes each name not already present into the next free
// header cell of the first sheet. It returns the names it added, in order.
func (w *Workbook) AppendColumns(names ...string) ([]string, error) {
	added := make([]string, 0, len(names))
	for _, name := range names {
		if !w.table.AddColumn(name) {
			continue
		}
		axis, err := excelize.CoordinatesToCellName(len(w.table.Columns), 1)
		if err != nil {
			return added, fmt.Errorf("failed to address column %q: %w", name, err)
		}
		if err := w.f.SetCellStr(w.sheet, axis, name); err != nil {
			return added, fmt.Errorf("failed to write column %q: %w", name, err)
		}
		added = append(added, name)
	}
	return added, nil
}

// WriteFile replaces path with the edited workbook, the same way
// Table.WriteFile does.
func (w *Workbook) WriteFile(path string) error {
	return writeAtomic(path, func(out io.Writer) error {
		if _, err := w.f.WriteTo(out); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
		return nil
	})
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.f.Close()
}
