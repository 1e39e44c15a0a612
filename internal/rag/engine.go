package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_rag.go -package=mocks ciq-assistant/internal/rag Classifier,Embedder,Generator,Engine

import (
	"context"
	"errors"
	"fmt"

	"ciq-assistant/internal/contextutil"
	"ciq-assistant/internal/document"
	"ciq-assistant/internal/router"
	"ciq-assistant/internal/storage"
	"ciq-assistant/internal/vectorstore"
)

var (
	// ErrClassificationFailure wraps a model error while routing the query.
	ErrClassificationFailure = errors.New("classification failed")
	// ErrRetrievalFailure wraps any failure while retrieving context or generating the answer.
	ErrRetrievalFailure = errors.New("retrieval failed")
)

// Classifier routes a query to a category.
type Classifier interface {
	Classify(ctx context.Context, query string) (router.Category, error)
}

// Embedder turns texts into vectors, one row per input.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator is the answer model.
type Generator interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// Engine answers queries against the routed collection.
type Engine interface {
	// Answer classifies the query, retrieves the best matching document and
	// asks the answer model, then records both turns in the session's memory.
	Answer(ctx context.Context, req AnswerRequest) (AnswerResponse, error)
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	classifier Classifier
	embedder   Embedder
	store      vectorstore.Store
	memory     storage.ConversationStore
	llm        Generator
	maxTurns   int
}

// NewEngine creates a new RAG engine. maxTurns bounds both the history put
// into prompts and the turns kept per session.
func NewEngine(
	classifier Classifier,
	embedder Embedder,
	store vectorstore.Store,
	memory storage.ConversationStore,
	llm Generator,
	maxTurns int,
) Engine {
	return &ragEngine{
		classifier: classifier,
		embedder:   embedder,
		store:      store,
		memory:     memory,
		llm:        llm,
		maxTurns:   maxTurns,
	}
}

// Answer answers a query.
func (e *ragEngine) Answer(ctx context.Context, req AnswerRequest) (AnswerResponse, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = contextutil.SessionIDFromContext(ctx)
	}
	logger := contextutil.LoggerFromContext(ctx).With("session_id", sessionID)

	logger.InfoContext(ctx, "query started", "query_length", len(req.Query))

	category, err := e.classifier.Classify(ctx, req.Query)
	if err != nil {
		logger.ErrorContext(ctx, "failed to classify query", "error", err)
		return AnswerResponse{}, fmt.Errorf("%w: %w", ErrClassificationFailure, err)
	}
	logger = logger.With("category", category)

	turns, err := e.memory.History(ctx, sessionID, e.maxTurns)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load conversation history", "error", err)
		return AnswerResponse{}, fmt.Errorf("%w: failed to load history: %w", ErrRetrievalFailure, err)
	}
	history := storage.FormatHistory(turns)

	resp := AnswerResponse{Category: category}

	var promptContext string
	if collection, ok := category.Collection(); ok {
		doc, err := e.retrieve(ctx, collection, req.Query)
		if err != nil {
			logger.ErrorContext(ctx, "failed to retrieve context", "error", err)
			return AnswerResponse{}, fmt.Errorf("%w: %w", ErrRetrievalFailure, err)
		}

		retrieved := NoContextMarker
		if doc != nil {
			retrieved = doc.Document.Content
			resp.Source = doc.Document.SourcePath
			logger.InfoContext(ctx, "context retrieved",
				"source", doc.Document.SourcePath,
				"distance", doc.Distance,
			)
		} else {
			logger.InfoContext(ctx, "collection has no documents")
		}
		promptContext = history + "\n" + retrieved
	} else {
		logger.InfoContext(ctx, "general query, skipping retrieval")
		promptContext = history
	}

	prompt := buildPrompt(category, promptContext, req.Query)
	logger.DebugContext(ctx, "sending prompt to LLM", "prompt_length", len(prompt))

	answer, err := e.llm.Chat(ctx, prompt)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		return AnswerResponse{}, fmt.Errorf("%w: %w", ErrRetrievalFailure, err)
	}
	resp.Answer = answer

	e.remember(ctx, sessionID, req.Query, answer)

	logger.InfoContext(ctx, "query completed", "answer_length", len(answer), "source", resp.Source)
	return resp, nil
}

// retrieve returns the nearest document in collection, or nil when the
// collection has no index or no documents.
func (e *ragEngine) retrieve(ctx context.Context, collection document.Collection, query string) (*vectorstore.Match, error) {
	index, err := e.store.Open(ctx, collection)
	if errors.Is(err, vectorstore.ErrIndexNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s index: %w", collection, err)
	}
	if index.Len() == 0 {
		return nil, nil
	}

	vectors, err := e.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}

	matches, err := index.Search(ctx, vectors[0], 1)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s index: %w", collection, err)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// remember appends the exchange to the session and trims old turns. Failures
// are logged; the answer has already been produced.
func (e *ragEngine) remember(ctx context.Context, sessionID, query, answer string) {
	logger := contextutil.LoggerFromContext(ctx)

	turns := []storage.Turn{
		{Role: storage.RoleUser, Text: query},
		{Role: storage.RoleAssistant, Text: answer},
	}
	if err := e.memory.Append(ctx, sessionID, turns); err != nil {
		logger.ErrorContext(ctx, "failed to save conversation turns", "session_id", sessionID, "error", err)
		return
	}
	if err := e.memory.Trim(ctx, sessionID, e.maxTurns); err != nil {
		logger.WarnContext(ctx, "failed to trim conversation history", "session_id", sessionID, "error", err)
	}
}
