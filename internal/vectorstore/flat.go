package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"ciq-assistant/internal/document"
)

// FlatIndex is an exact, in-memory L2 index over parallel vector and document slices.
type FlatIndex struct {
	dim     int
	vectors [][]float32
	docs    []document.Document
}

// NewFlatIndex creates an index. It fails with ErrIndexCorrupt when the
// slices have different lengths or a vector has the wrong dimension.
func NewFlatIndex(dim int, vectors [][]float32, docs []document.Document) (*FlatIndex, error) {
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("%w: %d vectors for %d documents", ErrIndexCorrupt, len(vectors), len(docs))
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", ErrIndexCorrupt, i, len(v), dim)
		}
	}
	return &FlatIndex{dim: dim, vectors: vectors, docs: docs}, nil
}

// Len returns the number of documents.
func (x *FlatIndex) Len() int {
	return len(x.docs)
}

// Dimension returns the vector dimension.
func (x *FlatIndex) Dimension() int {
	return x.dim
}

// Search scans every vector.
func (x *FlatIndex) Search(_ context.Context, query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	if len(x.docs) == 0 {
		return []Match{}, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("query has dimension %d, index has %d", len(query), x.dim)
	}

	matches := make([]Match, len(x.vectors))
	for i, v := range x.vectors {
		matches[i] = Match{
			Document: x.docs[i],
			Distance: squaredL2(query, v),
			Position: i,
		}
	}

	// Stable sort keeps the lower position first among equal distances.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
