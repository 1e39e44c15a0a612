package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func chatReply(content string) map[string]any {
	return map[string]any{
		"id":     "test-id",
		"object": "chat.completion",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:11434/v1", "test-key", "test-model", time.Second)
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("NewClient() BaseURL = %v, want http://localhost:11434/v1", client.BaseURL)
	}
	if client.Model != "test-model" {
		t.Errorf("NewClient() Model = %v, want test-model", client.Model)
	}
	if client.client == nil {
		t.Error("NewClient() client should not be nil")
	}
}

func TestClient_Chat(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		serverResp func(w http.ResponseWriter, r *http.Request)
		wantReply  string
		wantErr    bool
	}{
		{
			name:    "successful chat",
			message: "Hello",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/v1/chat/completions" {
					t.Errorf("expected /v1/chat/completions, got %s", r.URL.Path)
				}
				if !strings.Contains(r.Header.Get("Authorization"), "Bearer") {
					t.Error("missing Authorization header")
				}
				var body struct {
					Model    string `json:"model"`
					Messages []struct {
						Role    string `json:"role"`
						Content string `json:"content"`
					} `json:"messages"`
				}
				_ = json.NewDecoder(r.Body).Decode(&body)
				if body.Model != "test-model" {
					t.Errorf("model = %q, want test-model", body.Model)
				}
				if len(body.Messages) != 1 || body.Messages[0].Role != "user" || body.Messages[0].Content != "Hello" {
					t.Errorf("unexpected messages: %+v", body.Messages)
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(chatReply("  Hi there!\n"))
			},
			wantReply: "Hi there!",
		},
		{
			name:    "no choices",
			message: "Hello",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{"id": "x", "choices": []any{}})
			},
			wantErr: true,
		},
		{
			name:    "server error",
			message: "Hello",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewClient(server.URL+"/v1", "test-key", "test-model", 5*time.Second)
			reply, err := client.Chat(context.Background(), tt.message)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Chat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if reply != tt.wantReply {
				t.Errorf("Chat() = %q, want %q", reply, tt.wantReply)
			}
		})
	}
}

func TestClient_Chat_RetriesOnceAfterTimeout(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatReply("second try"))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/v1", "k", "m", 100*time.Millisecond)
	reply, err := client.Chat(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != "second try" {
		t.Errorf("Chat() = %q, want second try", reply)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestClient_Chat_GivesUpAfterSecondTimeout(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(server.URL+"/v1", "k", "m", 50*time.Millisecond)
	_, err := client.Chat(context.Background(), "Hello")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Chat() error = %v, want ErrTimeout", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestClient_Chat_ParentCancelNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatReply("unused"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL+"/v1", "k", "m", time.Second)
	if _, err := client.Chat(ctx, "Hello"); err == nil {
		t.Fatal("Chat() with cancelled context should fail")
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("server called %d times, want 0", got)
	}
}
