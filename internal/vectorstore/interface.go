package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks ciq-assistant/internal/vectorstore Index,Store

import (
	"context"
	"errors"
	"fmt"

	"ciq-assistant/internal/document"
)

var (
	// ErrIndexNotFound means the collection has no built index.
	ErrIndexNotFound = errors.New("index not found")
	// ErrIndexCorrupt means the persisted vectors and documents disagree.
	ErrIndexCorrupt = errors.New("index corrupt")
)

// Match is one search hit.
type Match struct {
	Document document.Document
	// Distance is the squared L2 distance to the query; smaller is closer.
	Distance float32
	// Position is the document's position in the index.
	Position int
}

// Index is a read-only, per-collection nearest-neighbour index.
type Index interface {
	// Len returns the number of documents in the index.
	Len() int

	// Search returns the k nearest documents by L2 distance, closest first.
	// Ties go to the lower position. k larger than Len returns everything.
	Search(ctx context.Context, query []float32, k int) ([]Match, error)
}

// Store builds and opens per-collection indexes.
type Store interface {
	// Build replaces the collection's index with one over docs. vectors[i]
	// must be the embedding of docs[i]. Building with no documents removes
	// the collection's index.
	Build(ctx context.Context, collection document.Collection, docs []document.Document, vectors [][]float32) error

	// Open returns the collection's active index, ErrIndexNotFound when none
	// has been built, or ErrIndexCorrupt when its artifacts disagree.
	Open(ctx context.Context, collection document.Collection) (Index, error)
}

// validateBuild checks the inputs to Build and returns the vector dimension.
func validateBuild(docs []document.Document, vectors [][]float32) (int, error) {
	if len(docs) != len(vectors) {
		return 0, fmt.Errorf("got %d documents but %d vectors", len(docs), len(vectors))
	}
	if len(vectors) == 0 {
		return 0, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, fmt.Errorf("vector 0 is empty")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}
	return dim, nil
}
