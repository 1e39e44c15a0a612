package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func embeddingsReply(vectors ...[]float32) map[string]any {
	data := make([]map[string]any, len(vectors))
	for i, v := range vectors {
		data[i] = map[string]any{"object": "embedding", "embedding": v, "index": i}
	}
	return map[string]any{"object": "list", "data": data, "model": "test-model"}
}

func TestNewEmbeddingsClient(t *testing.T) {
	client := NewEmbeddingsClient("http://localhost:11434/v1", "test-key", "test-model", 384, time.Second)
	if client == nil {
		t.Fatal("NewEmbeddingsClient() returned nil")
	}
	if client.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("NewEmbeddingsClient() BaseURL = %v", client.BaseURL)
	}
	if client.ExpectedSize != 384 {
		t.Errorf("NewEmbeddingsClient() ExpectedSize = %v, want 384", client.ExpectedSize)
	}
}

func TestEmbeddingsClient_EmbedTexts(t *testing.T) {
	tests := []struct {
		name         string
		texts        []string
		expectedSize int
		serverResp   func(w http.ResponseWriter, r *http.Request)
		wantErr      bool
		wantCount    int
	}{
		{
			name:         "successful embedding",
			texts:        []string{"Hello", "World"},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/v1/embeddings" {
					t.Errorf("expected /v1/embeddings, got %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(embeddingsReply(make([]float32, 4), make([]float32, 4)))
			},
			wantCount: 2,
		},
		{
			name:         "empty input",
			texts:        []string{},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				t.Error("server should not be called for empty input")
			},
			wantErr: true,
		},
		{
			name:         "wrong embedding count",
			texts:        []string{"Hello", "World"},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(embeddingsReply(make([]float32, 4)))
			},
			wantErr: true,
		},
		{
			name:         "wrong embedding size",
			texts:        []string{"Hello"},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(embeddingsReply(make([]float32, 3)))
			},
			wantErr: true,
		},
		{
			name:         "server error",
			texts:        []string{"Hello"},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`{"error":{"message":"down"}}`))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewEmbeddingsClient(server.URL+"/v1", "test-key", "test-model", tt.expectedSize, 5*time.Second)
			got, err := client.EmbedTexts(context.Background(), tt.texts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EmbedTexts() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(got) != tt.wantCount {
				t.Errorf("EmbedTexts() returned %d vectors, want %d", len(got), tt.wantCount)
			}
		})
	}
}

func TestEmbeddingsClient_EmbedTexts_OrdersByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "embedding": []float32{2, 2}, "index": 1},
				{"object": "embedding", "embedding": []float32{1, 1}, "index": 0},
			},
		})
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL+"/v1", "k", "m", 2, time.Second)
	got, err := client.EmbedTexts(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if got[0][0] != 1 || got[1][0] != 2 {
		t.Errorf("EmbedTexts() did not honour response indexes: %v", got)
	}
}

func TestEmbeddingsClient_Validate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embeddingsReply(make([]float32, 8)))
	}))
	defer server.Close()

	if err := NewEmbeddingsClient(server.URL+"/v1", "k", "m", 8, time.Second).Validate(context.Background()); err != nil {
		t.Errorf("Validate() with matching dimension error = %v", err)
	}
	if err := NewEmbeddingsClient(server.URL+"/v1", "k", "m", 384, time.Second).Validate(context.Background()); err == nil {
		t.Error("Validate() with mismatched dimension should fail")
	}
}
