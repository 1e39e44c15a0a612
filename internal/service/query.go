package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_query_service.go -package=mocks -mock_names=QueryService=MockQueryService ciq-assistant/internal/service QueryService

import (
	"context"
	"strings"

	"ciq-assistant/internal/contextutil"
	"ciq-assistant/internal/rag"
	"ciq-assistant/internal/router"
)

// QueryRequest represents a question in the domain layer.
type QueryRequest struct {
	SessionID string
	Query     string
}

// QueryResponse represents an answered question in the domain layer.
type QueryResponse struct {
	Answer   string
	Category router.Category
	Source   string
}

// QueryService answers questions about the indexed CIQ artifacts.
type QueryService interface {
	// Ask validates the request and answers it.
	Ask(ctx context.Context, req QueryRequest) (QueryResponse, error)
}

// queryService implements QueryService.
type queryService struct {
	engine rag.Engine
}

// NewQueryService creates a new QueryService.
func NewQueryService(engine rag.Engine) QueryService {
	return &queryService{engine: engine}
}

// Ask answers a query.
func (s *queryService) Ask(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	// Business validation
	if strings.TrimSpace(req.Query) == "" {
		logger.WarnContext(ctx, "empty query")
		return QueryResponse{}, &ValidationError{
			Field:   "query",
			Message: "cannot be empty",
		}
	}

	resp, err := s.engine.Answer(ctx, rag.AnswerRequest{
		SessionID: req.SessionID,
		Query:     req.Query,
	})
	if err != nil {
		return QueryResponse{}, WrapError(err, "failed to answer query")
	}

	return QueryResponse{
		Answer:   resp.Answer,
		Category: resp.Category,
		Source:   resp.Source,
	}, nil
}
