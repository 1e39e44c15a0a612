package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks ciq-assistant/internal/indexer Embedder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ciq-assistant/internal/contextutil"
	"ciq-assistant/internal/document"
	"ciq-assistant/internal/vectorstore"
)

// Embedder turns texts into vectors, one row per input.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// FolderFunc maps a collection to its source folder.
type FolderFunc func(document.Collection) string

// Builder rebuilds collection indexes from their source folders.
type Builder struct {
	loader   *document.Loader
	embedder Embedder
	store    vectorstore.Store
	folderOf FolderFunc
}

// NewBuilder creates a new index builder.
func NewBuilder(loader *document.Loader, embedder Embedder, store vectorstore.Store, folderOf FolderFunc) *Builder {
	return &Builder{
		loader:   loader,
		embedder: embedder,
		store:    store,
		folderOf: folderOf,
	}
}

// BuildCollection loads the collection folder, embeds every document in a
// single batch and replaces the collection's index. Unreadable files are
// skipped and reported in the returned stats.
func (b *Builder) BuildCollection(ctx context.Context, c document.Collection) (*CollectionStats, error) {
	logger := contextutil.LoggerFromContext(ctx).With("collection", c)
	start := time.Now()

	folder := b.folderOf(c)
	docs, loadErrs := b.loader.LoadCollection(ctx, c, folder)
	stats := &CollectionStats{
		Collection: c,
		Folder:     folder,
		Documents:  len(docs),
		Skipped:    loadErrs,
	}

	var vectors [][]float32
	if len(docs) > 0 {
		texts := make([]string, len(docs))
		for i, d := range docs {
			texts[i] = d.Content
		}

		var err error
		vectors, err = b.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("failed to embed %s documents: %w", c, err)
		}
		if len(vectors) != len(docs) {
			return stats, fmt.Errorf("embedder returned %d vectors for %d %s documents", len(vectors), len(docs), c)
		}
		stats.Dimension = len(vectors[0])
	}

	if err := b.store.Build(ctx, c, docs, vectors); err != nil {
		return stats, fmt.Errorf("failed to build %s index: %w", c, err)
	}

	stats.Duration = time.Since(start)
	logger.InfoContext(ctx, "collection indexed",
		"documents", stats.Documents,
		"skipped", len(stats.Skipped),
		"duration", stats.Duration,
	)
	return stats, nil
}

// BuildAll rebuilds the given collections, or every collection when none are
// named. A failing collection does not stop the others; all failures are
// returned joined.
func (b *Builder) BuildAll(ctx context.Context, collections ...document.Collection) ([]*CollectionStats, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(collections) == 0 {
		collections = document.Collections
	}

	logger.InfoContext(ctx, "starting indexing", "collections", len(collections))

	var all []*CollectionStats
	var errs []error
	for _, c := range collections {
		stats, err := b.BuildCollection(ctx, c)
		if stats != nil {
			all = append(all, stats)
		}
		if err != nil {
			logger.ErrorContext(ctx, "failed to index collection", "collection", c, "error", err)
			errs = append(errs, err)
		}
	}

	logger.InfoContext(ctx, "indexing completed",
		"collections", len(collections),
		"success", len(collections)-len(errs),
		"errors", len(errs),
	)
	return all, errors.Join(errs...)
}
