package schema

import (
	"context"

	"ciq-assistant/internal/table"
)

// Result is the outcome of standardizing one uploaded table.
type Result struct {
	Table     *table.Table
	Unmatched []string
	Mapping   Mapping
}

// Standardize reshapes source into the canonical column layout. Each
// canonical column takes the data of the first source column mapped to it,
// or nulls when nothing maps. The result always has canonical's columns, in
// order, and source's row count. Source columns left unmapped are returned in
// source order.
func Standardize(ctx context.Context, embedder Embedder, source, canonical *table.Table, threshold float32) (*Result, error) {
	mapping, err := MapColumns(ctx, embedder, source.Columns, canonical.Columns, threshold)
	if err != nil {
		return nil, err
	}

	// canonical column -> index of the first source column mapped to it
	from := make(map[string]int, len(canonical.Columns))
	var unmatched []string
	for i, col := range source.Columns {
		target, ok := mapping.Target(col)
		if !ok {
			unmatched = append(unmatched, col)
			continue
		}
		if _, taken := from[target]; !taken {
			from[target] = i
		}
	}

	out := table.New(canonical.Columns...)
	out.Rows = make([][]table.Cell, len(source.Rows))
	for r, srcRow := range source.Rows {
		row := make([]table.Cell, len(canonical.Columns))
		for c, name := range canonical.Columns {
			if i, ok := from[name]; ok && i < len(srcRow) {
				row[c] = srcRow[i]
			}
		}
		out.Rows[r] = row
	}

	return &Result{
		Table:     out,
		Unmatched: unmatched,
		Mapping:   mapping,
	}, nil
}
