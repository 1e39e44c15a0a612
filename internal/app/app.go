// Package app wires the configured storage, model clients, indexes and
// services into one value shared by the API server and the CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"ciq-assistant/internal/config"
	"ciq-assistant/internal/document"
	"ciq-assistant/internal/indexer"
	"ciq-assistant/internal/llm"
	"ciq-assistant/internal/rag"
	"ciq-assistant/internal/router"
	"ciq-assistant/internal/service"
	"ciq-assistant/internal/storage"
	"ciq-assistant/internal/vectorstore"
)

// App holds the long-lived components of a running assistant.
type App struct {
	DB      *sql.DB
	Store   vectorstore.Store
	Builder *indexer.Builder
	Query   service.QueryService
	Schema  service.SchemaService

	closers []io.Closer
}

// New opens the database, validates the embeddings endpoint and builds every
// service. Callers must Close the returned App.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a := &App{DB: db, closers: []io.Closer{db}}

	if err := storage.Migrate(db); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	store, err := newStore(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Store = store
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	slog.Info("Vector store ready", "backend", cfg.VectorBackend)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDimension, cfg.LLMTimeout)
	if err := embedder.Validate(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to validate embedding client: %w", err)
	}
	slog.Info("Embedding client validated", "model", cfg.EmbeddingModelName, "vector_size", cfg.EmbeddingDimension)

	a.Builder = indexer.NewBuilder(document.NewLoader(), embedder, store, func(c document.Collection) string {
		return cfg.FolderFor(c.String())
	})

	routerModel := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.RouterModelName, cfg.LLMTimeout)
	answerModel := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.LLMTimeout)

	engine := rag.NewEngine(
		router.NewClassifier(routerModel),
		embedder,
		store,
		storage.NewConversationRepo(db),
		answerModel,
		cfg.MemoryMaxTurns,
	)
	a.Query = service.NewQueryService(engine)
	a.Schema = service.NewSchemaService(
		embedder,
		storage.NewPendingRepo(db, cfg.PendingTTL),
		a.Builder,
		cfg.FolderFor(document.CollectionStandardCIQ.String()),
		cfg.SchemaMatchThreshold,
	)
	slog.Info("Services initialized", "router_model", cfg.RouterModelName, "answer_model", cfg.LLMModelName)

	return a, nil
}

func newStore(cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		s, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollectionPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		return s, nil
	default:
		s, err := vectorstore.NewFileStore(cfg.IndexDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open index directory: %w", err)
		}
		return s, nil
	}
}

// Close releases the database and vector store connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
