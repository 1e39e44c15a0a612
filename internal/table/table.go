// Package table models a single spreadsheet sheet as named columns over
// rows of nullable typed cells, and moves it in and out of .xlsx workbooks.
package table

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the spreadsheet type of a valid cell.
type Kind uint8

const (
	KindString Kind = iota
	KindNumber
	KindBool
)

// Cell is one spreadsheet value. Valid=false marks an empty (null) cell.
// Value is always the display text; Number carries the numeric value of
// number cells and 1 or 0 for booleans.
type Cell struct {
	Value  string
	Valid  bool
	Kind   Kind
	Number float64
}

// Null is the empty cell.
var Null = Cell{}

// String returns a valid text cell holding s.
func String(s string) Cell {
	return Cell{Value: s, Valid: true}
}

// Number returns a valid numeric cell.
func Number(f float64) Cell {
	return Cell{Value: strconv.FormatFloat(f, 'f', -1, 64), Valid: true, Kind: KindNumber, Number: f}
}

// Bool returns a valid boolean cell.
func Bool(b bool) Cell {
	if b {
		return Cell{Value: "TRUE", Valid: true, Kind: KindBool, Number: 1}
	}
	return Cell{Value: "FALSE", Valid: true, Kind: KindBool}
}

// value is what gets written to a spreadsheet: nil, string, float64 or bool.
func (c Cell) value() interface{} {
	if !c.Valid {
		return nil
	}
	switch c.Kind {
	case KindNumber:
		return c.Number
	case KindBool:
		return c.Number != 0
	default:
		return c.Value
	}
}

// MarshalJSON encodes null cells as JSON null and keeps numbers and
// booleans unquoted.
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.value())
}

// UnmarshalJSON accepts a JSON string, number, boolean or null.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("invalid cell: %w", err)
	}
	switch v := v.(type) {
	case nil:
		*c = Null
	case string:
		*c = String(v)
	case bool:
		*c = Bool(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return fmt.Errorf("invalid numeric cell %s: %w", v, err)
		}
		*c = Number(f)
	default:
		return fmt.Errorf("cell must be a string, number, boolean or null, got %s", data)
	}
	return nil
}

// Table is an ordered set of named columns. Every row has exactly
// len(Columns) cells.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]Cell `json:"rows"`
}

// New creates an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// FromRows builds a table from raw sheet rows. The first row is the header;
// blank header cells become "Unnamed: <i>" and repeated names get ".1", ".2"
// suffixes. Short rows are padded with nulls and fully blank rows are dropped.
func FromRows(raw [][]string) *Table {
	cells := make([][]Cell, len(raw))
	for r, row := range raw {
		cells[r] = make([]Cell, len(row))
		for i, v := range row {
			if v != "" {
				cells[r][i] = String(v)
			}
		}
	}
	return fromCells(cells)
}

// fromCells is FromRows over typed cells. Header cells are used by their
// display text.
func fromCells(raw [][]Cell) *Table {
	if len(raw) == 0 {
		return New()
	}

	width := 0
	for _, r := range raw {
		if len(r) > width {
			width = len(r)
		}
	}

	header := make([]string, len(raw[0]))
	for i, c := range raw[0] {
		header[i] = c.Value
	}

	t := &Table{Columns: normalizeHeader(header, width)}
	for _, r := range raw[1:] {
		row := make([]Cell, width)
		blank := true
		for i, c := range r {
			if !c.Valid {
				continue
			}
			row[i] = c
			blank = false
		}
		if blank {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func normalizeHeader(header []string, width int) []string {
	cols := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		cols[i] = name
	}
	return cols
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AddColumn appends a null-filled column. It reports false and leaves the
// table unchanged if the column already exists.
func (t *Table) AddColumn(name string) bool {
	if t.ColumnIndex(name) >= 0 {
		return false
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], Null)
	}
	return true
}

// Column returns a copy of the cells in column i.
func (t *Table) Column(i int) []Cell {
	out := make([]Cell, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]Cell, len(t.Rows)),
	}
	for i, row := range t.Rows {
		c.Rows[i] = append([]Cell(nil), row...)
	}
	return c
}

// HeadCSV renders the header plus at most n rows as CSV. Null cells are empty fields.
func (t *Table) HeadCSV(n int) (string, error) {
	if len(t.Columns) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		if i >= n {
			break
		}
		for j, c := range row {
			record[j] = c.Value
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.String(), nil
}
