package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/themxgroup/launchpad/internal/llm"
)

func TestNew_SetsDefaults(t *testing.T) {
	client := New("test-key", "gpt-4o-mini", "", "")

	if client.baseURL != defaultBaseURL {
		t.Errorf("expected default baseURL %q, got %q", defaultBaseURL, client.baseURL)
	}
	if client.embedModel != "text-embedding-3-small" {
		t.Errorf("expected default embed model, got %q", client.embedModel)
	}
	if client.http == nil {
		t.Error("expected http client to be initialized")
	}
}

func TestNew_CustomBaseURL(t *testing.T) {
	client := New("key", "model", "http://localhost:11434/v1", "nomic-embed-text")

	if client.baseURL != "http://localhost:11434/v1" {
		t.Errorf("expected custom baseURL, got %q", client.baseURL)
	}
	if client.embedModel != "nomic-embed-text" {
		t.Errorf("expected custom embed model, got %q", client.embedModel)
	}
}

func TestName(t *testing.T) {
	client := New("key", "model", "", "")
	if client.Name() != "openai" {
		t.Errorf("expected name 'openai', got %q", client.Name())
	}
}

func TestComplete_CorrectRequest(t *testing.T) {
	var capturedPath string
	var capturedAuth string
	var capturedBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedAuth = r.Header.Get("Authorization")
		bodyBytes, _ := io.ReadAll(r.Body)
		json.Unmarshal(bodyBytes, &capturedBody)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "response"}, "finish_reason": "stop"},
			},
			"model": "gpt-4o-mini",
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 20},
		})
	}))
	defer server.Close()

	client := New("test-api-key", "gpt-4o-mini", server.URL, "")
	temp := 0.2
	maxTokens := 1024

	client.Complete(context.Background(), &llm.Prompt{
		SystemPrompt: "You answer briefly",
		Messages:     []llm.Message{{Role: "user", Content: "Hello"}},
	}, &llm.RequestOptions{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
		StopSeqs:    []string{"END"},
	})

	if capturedPath != "/chat/completions" {
		t.Errorf("expected path /chat/completions, got %q", capturedPath)
	}
	if capturedAuth != "Bearer test-api-key" {
		t.Errorf("expected bearer auth, got %q", capturedAuth)
	}
	if capturedBody["model"] != "gpt-4o-mini" {
		t.Errorf("expected model 'gpt-4o-mini', got %v", capturedBody["model"])
	}
	if capturedBody["temperature"] != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", capturedBody["temperature"])
	}
	if capturedBody["max_tokens"] != float64(1024) {
		t.Errorf("expected max_tokens 1024, got %v", capturedBody["max_tokens"])
	}

	messages := capturedBody["messages"].([]interface{})
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages (system + user), got %d", len(messages))
	}
	first := messages[0].(map[string]interface{})
	if first["role"] != "system" || first["content"] != "You answer briefly" {
		t.Errorf("expected system message first, got %v", first)
	}

	stop := capturedBody["stop"].([]interface{})
	if len(stop) != 1 || stop[0] != "END" {
		t.Errorf("expected stop ['END'], got %v", stop)
	}
}

func TestComplete_ParsesSuccessfulResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "This is the answer"}, "finish_reason": "stop"},
			},
			"model": "gpt-4o",
			"usage": map[string]int{"prompt_tokens": 100, "completion_tokens": 50},
		})
	}))
	defer server.Close()

	client := New("key", "model", server.URL, "")
	resp, err := client.Complete(context.Background(), &llm.Prompt{
		Messages: []llm.Message{{Role: "user", Content: "test"}},
	}, nil)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "This is the answer" {
		t.Errorf("expected content 'This is the answer', got %q", resp.Content)
	}
	if resp.Model != "gpt-4o" {
		t.Errorf("expected model 'gpt-4o', got %q", resp.Model)
	}
	if resp.StopReason != "stop" {
		t.Errorf("expected stop reason 'stop', got %q", resp.StopReason)
	}
	if resp.InputTokens != 100 || resp.OutputTokens != 50 {
		t.Errorf("unexpected token usage: %d in, %d out", resp.InputTokens, resp.OutputTokens)
	}
}

func TestComplete_HandlesNon200StatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "upstream exploded"}`))
	}))
	defer server.Close()

	client := New("key", "model", server.URL, "")
	_, err := client.Complete(context.Background(), &llm.Prompt{
		Messages: []llm.Message{{Role: "user", Content: "test"}},
	}, nil)

	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("expected error to contain '500', got: %v", err)
	}
	if !errors.Is(err, llm.ErrTransient) {
		t.Errorf("expected 500 to be transient, got %v", err)
	}
}

func TestEmbed_CorrectRequest(t *testing.T) {
	var capturedPath string
	var capturedBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		bodyBytes, _ := io.ReadAll(r.Body)
		json.Unmarshal(bodyBytes, &capturedBody)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.1, 0.2}},
				{"embedding": []float32{0.3, 0.4}},
			},
		})
	}))
	defer server.Close()

	client := New("key", "model", server.URL, "text-embedding-3-large")
	embeddings, err := client.Embed(context.Background(), []string{"first", "second"})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedPath != "/embeddings" {
		t.Errorf("expected path /embeddings, got %q", capturedPath)
	}
	if capturedBody["model"] != "text-embedding-3-large" {
		t.Errorf("expected embed model in body, got %v", capturedBody["model"])
	}
	if len(embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(embeddings))
	}
	if embeddings[1][0] != 0.3 {
		t.Errorf("expected second embedding to start with 0.3, got %v", embeddings[1])
	}
}

func TestEmbed_RejectsInvalidInput(t *testing.T) {
	client := New("key", "model", "", "")

	if _, err := client.Embed(context.Background(), nil); !errors.Is(err, llm.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty batch, got %v", err)
	}
	if _, err := client.Embed(context.Background(), []string{"ok", ""}); !errors.Is(err, llm.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty string, got %v", err)
	}
}
