package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"ciq-assistant/internal/contextutil"
	"ciq-assistant/internal/document"
)

const upsertBatchSize = 256

// Payload keys stored on every point.
const (
	payloadPosition   = "position"
	payloadTotal      = "total"
	payloadContent    = "content"
	payloadSourcePath = "source_path"
	payloadCollection = "collection"
)

// QdrantStore implements Store on Qdrant. Each build creates a new physical
// collection and repoints the alias "<prefix>_<collection>" to it in one
// alias update, so searches switch from the old index to the new one atomically.
type QdrantStore struct {
	client *qdrant.Client
	prefix string
}

// NewQdrantStore creates a new Qdrant vector store client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr, prefix string) (*QdrantStore, error) {
	host, port, err := parseQdrantAddress(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client: client,
		prefix: prefix,
	}, nil
}

// parseQdrantAddress derives the gRPC host and port from the HTTP URL.
func parseQdrantAddress(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}
	return host, port, nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func (s *QdrantStore) alias(collection document.Collection) string {
	return s.prefix + "_" + string(collection)
}

// Build creates a fresh collection, fills it, swaps the alias and drops the old collection.
func (s *QdrantStore) Build(ctx context.Context, collection document.Collection, docs []document.Document, vectors [][]float32) error {
	logger := contextutil.LoggerFromContext(ctx).With("collection", collection)

	dim, err := validateBuild(docs, vectors)
	if err != nil {
		return err
	}

	alias := s.alias(collection)
	previous, err := s.resolveAlias(ctx, alias)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		if previous != "" {
			if err := s.client.UpdateAliases(ctx, []*qdrant.AliasOperations{qdrant.NewAliasDelete(alias)}); err != nil {
				return fmt.Errorf("failed to delete alias: %w", err)
			}
			s.dropCollection(ctx, previous)
		}
		logger.InfoContext(ctx, "collection is empty, index removed")
		return nil
	}

	physical := fmt.Sprintf("%s_%d", alias, time.Now().UnixNano())
	logger.InfoContext(ctx, "creating collection", "physical", physical, "vector_size", dim)
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: physical,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := s.upsert(ctx, physical, collection, docs, vectors); err != nil {
		s.dropCollection(ctx, physical)
		return err
	}

	ops := []*qdrant.AliasOperations{}
	if previous != "" {
		ops = append(ops, qdrant.NewAliasDelete(alias))
	}
	ops = append(ops, qdrant.NewAliasCreate(alias, physical))
	if err := s.client.UpdateAliases(ctx, ops); err != nil {
		s.dropCollection(ctx, physical)
		return fmt.Errorf("failed to swap alias: %w", err)
	}

	if previous != "" {
		s.dropCollection(ctx, previous)
	}

	logger.InfoContext(ctx, "index built", "physical", physical, "documents", len(docs))
	return nil
}

func (s *QdrantStore) upsert(ctx context.Context, physical string, collection document.Collection, docs []document.Document, vectors [][]float32) error {
	for start := 0; start < len(docs); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(docs))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewID(uuid.NewString()),
				Vectors: qdrant.NewVectors(vectors[i]...),
				Payload: qdrant.NewValueMap(map[string]any{
					payloadPosition:   i,
					payloadTotal:      len(docs),
					payloadContent:    docs[i].Content,
					payloadSourcePath: docs[i].SourcePath,
					payloadCollection: string(collection),
				}),
			})
		}

		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: physical,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert points: %w", err)
		}
	}
	return nil
}

func (s *QdrantStore) dropCollection(ctx context.Context, name string) {
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to delete collection", "collection", name, "error", err)
	}
}

// resolveAlias returns the physical collection behind alias, or "" if the alias does not exist.
func (s *QdrantStore) resolveAlias(ctx context.Context, alias string) (string, error) {
	aliases, err := s.client.ListAliases(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list aliases: %w", err)
	}
	for _, a := range aliases {
		if a.GetAliasName() == alias {
			return a.GetCollectionName(), nil
		}
	}
	return "", nil
}

// Open resolves the collection alias and checks that the point count matches
// the total recorded at build time.
func (s *QdrantStore) Open(ctx context.Context, collection document.Collection) (Index, error) {
	physical, err := s.resolveAlias(ctx, s.alias(collection))
	if err != nil {
		return nil, err
	}
	if physical == "" {
		return nil, fmt.Errorf("collection %s: %w", collection, ErrIndexNotFound)
	}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: physical,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count points: %w", err)
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: physical,
		Limit:          qdrant.PtrOf(uint32(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: collection %s has no points", ErrIndexCorrupt, physical)
	}

	total, ok := convertPayloadToMap(points[0].GetPayload())[payloadTotal].(int64)
	if !ok || uint64(total) != count {
		return nil, fmt.Errorf("%w: collection %s holds %d points, built with %v", ErrIndexCorrupt, physical, count, total)
	}

	return &qdrantIndex{client: s.client, collection: physical, size: int(count)}, nil
}

type qdrantIndex struct {
	client     *qdrant.Client
	collection string
	size       int
}

func (x *qdrantIndex) Len() int {
	return x.size
}

func (x *qdrantIndex) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	if x.size == 0 {
		return []Match{}, nil
	}

	limit := uint64(min(k, x.size))
	scoredPoints, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", x.collection, "k", k, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	matches := make([]Match, 0, len(scoredPoints))
	for _, p := range scoredPoints {
		m, err := matchFromPayload(convertPayloadToMap(p.GetPayload()), p.GetScore())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
		}
		matches = append(matches, m)
	}
	sortMatches(matches)

	logger.DebugContext(ctx, "search completed", "collection", x.collection, "k", k, "results", len(matches))
	return matches, nil
}

// matchFromPayload rebuilds a Match from a point payload. Qdrant reports the
// Euclid distance itself, so it is squared to match FlatIndex.
func matchFromPayload(meta map[string]any, score float32) (Match, error) {
	pos, ok := meta[payloadPosition].(int64)
	if !ok {
		return Match{}, fmt.Errorf("point payload missing %s", payloadPosition)
	}
	content, _ := meta[payloadContent].(string)
	source, _ := meta[payloadSourcePath].(string)
	coll, _ := meta[payloadCollection].(string)
	return Match{
		Document: document.Document{
			Content:    content,
			Collection: document.Collection(strings.TrimSpace(coll)),
			SourcePath: source,
		},
		Distance: score * score,
		Position: int(pos),
	}, nil
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Position < matches[j].Position
	})
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
