package vectorstore

import (
	"context"
	"testing"

	"github.com/qdrant/go-client/qdrant"

	"ciq-assistant/internal/document"
)

func TestParseQdrantAddress(t *testing.T) {
	tests := []struct {
		name     string
		urlStr   string
		wantErr  bool
		wantHost string
		wantPort int
	}{
		{
			name:     "valid URL",
			urlStr:   "http://localhost:6333",
			wantHost: "localhost",
			wantPort: 6334, // gRPC port is HTTP port + 1
		},
		{
			name:     "URL with custom port",
			urlStr:   "http://qdrant.internal:9000",
			wantHost: "qdrant.internal",
			wantPort: 9001,
		},
		{
			name:    "invalid URL",
			urlStr:  "://invalid",
			wantErr: true,
		},
		{
			name:     "URL without port",
			urlStr:   "http://localhost",
			wantHost: "localhost",
			wantPort: 6334,
		},
		{
			name:     "URL without hostname",
			urlStr:   "http://:6333",
			wantHost: "localhost",
			wantPort: 6334,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := parseQdrantAddress(tt.urlStr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseQdrantAddress() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if host != tt.wantHost {
				t.Errorf("host = %v, want %v", host, tt.wantHost)
			}
			if port != tt.wantPort {
				t.Errorf("port = %v, want %v", port, tt.wantPort)
			}
		})
	}
}

func TestNewQdrantStore_InvalidURL(t *testing.T) {
	if _, err := NewQdrantStore("://invalid", "ciq"); err == nil {
		t.Error("NewQdrantStore() with invalid URL should return error")
	}
}

func TestQdrantStore_Alias(t *testing.T) {
	s := &QdrantStore{prefix: "ciq"}
	if got := s.alias(document.CollectionStandardCIQ); got != "ciq_standard_ciq" {
		t.Errorf("alias() = %q, want ciq_standard_ciq", got)
	}
}

func TestQdrantIndex_Search_InvalidK(t *testing.T) {
	idx := &qdrantIndex{size: 3}
	for _, k := range []int{0, -1} {
		if _, err := idx.Search(context.Background(), []float32{1, 2}, k); err == nil {
			t.Errorf("Search() with k=%d should return error", k)
		}
	}
}

func TestQdrantIndex_Search_Empty(t *testing.T) {
	idx := &qdrantIndex{size: 0}
	got, err := idx.Search(context.Background(), []float32{1, 2}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Search() on empty index returned %d matches", len(got))
	}
}

func TestMatchFromPayload(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		payloadPosition:   2,
		payloadTotal:      5,
		payloadContent:    "[node5.log]\nERROR",
		payloadSourcePath: "data/logs/node5.log",
		payloadCollection: "log",
	})

	m, err := matchFromPayload(convertPayloadToMap(payload), 1.5)
	if err != nil {
		t.Fatalf("matchFromPayload() error = %v", err)
	}
	if m.Position != 2 {
		t.Errorf("Position = %d, want 2", m.Position)
	}
	if m.Distance != 2.25 {
		t.Errorf("Distance = %v, want squared score 2.25", m.Distance)
	}
	want := document.Document{Content: "[node5.log]\nERROR", Collection: document.CollectionLog, SourcePath: "data/logs/node5.log"}
	if m.Document != want {
		t.Errorf("Document = %+v, want %+v", m.Document, want)
	}

	if _, err := matchFromPayload(map[string]any{}, 0); err == nil {
		t.Error("matchFromPayload() without position should fail")
	}
}

func TestSortMatches(t *testing.T) {
	matches := []Match{
		{Distance: 1, Position: 3},
		{Distance: 0.5, Position: 4},
		{Distance: 1, Position: 1},
	}
	sortMatches(matches)

	wantPositions := []int{4, 1, 3}
	for i, m := range matches {
		if m.Position != wantPositions[i] {
			t.Errorf("matches[%d].Position = %d, want %d", i, m.Position, wantPositions[i])
		}
	}
}

func TestConvertPayloadToMap(t *testing.T) {
	result := convertPayloadToMap(nil)
	if result == nil {
		t.Error("convertPayloadToMap() should return empty map, not nil")
	}

	result = convertPayloadToMap(qdrant.NewValueMap(map[string]any{
		"n":    7,
		"s":    "x",
		"b":    true,
		"list": []any{"a", 1},
	}))
	if result["n"] != int64(7) || result["s"] != "x" || result["b"] != true {
		t.Errorf("convertPayloadToMap() = %v", result)
	}
	if list, ok := result["list"].([]any); !ok || len(list) != 2 {
		t.Errorf("convertPayloadToMap() list = %v", result["list"])
	}
}
