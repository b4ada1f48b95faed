package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/mollysec/molly/internal/domain/service"
	"github.com/mollysec/molly/internal/domain/tool"
	llm "github.com/mollysec/molly/internal/infrastructure/llm"
)

func newTestProvider(baseURL string) *Provider {
	return New(llm.ProviderConfig{
		Type:    "openai",
		BaseURL: baseURL + "/v1",
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
	}, zap.NewNop())
}

func TestGenerate_MapsRolesAndTools(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Tools []struct {
			Type     string `json:"type"`
			Function struct {
				Name string `json:"name"`
			} `json:"function"`
		} `json:"tools"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"hola"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":5,"completion_tokens":5,"total_tokens":10}}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)
	resp, err := provider.Generate(context.Background(), &service.LLMRequest{
		System: "Eres Molly.",
		Messages: []service.LLMMessage{
			{Role: service.RoleUser, Content: "hola"},
			{Role: service.RoleModel, Content: "buenas"},
		},
		Tools: []tool.Definition{{Name: "get_scan_results", Parameters: map[string]interface{}{"type": "object"}}},
		Model: "gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(captured.Messages) != 3 {
		t.Fatalf("messages length = %d, want 3 (system + 2 turns)", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" {
		t.Errorf("first role = %q, want system", captured.Messages[0].Role)
	}
	if captured.Messages[2].Role != "assistant" {
		t.Errorf("model turn role = %q, want assistant", captured.Messages[2].Role)
	}
	if len(captured.Tools) != 1 || captured.Tools[0].Function.Name != "get_scan_results" {
		t.Errorf("tools not carried: %+v", captured.Tools)
	}

	if resp.Content != "hola" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.TokensUsed != 10 {
		t.Errorf("tokens = %d, want 10", resp.TokensUsed)
	}
}

func TestGenerate_QuotaClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota"}}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)
	_, err := provider.Generate(context.Background(), &service.LLMRequest{
		Messages: []service.LLMMessage{{Role: service.RoleUser, Content: "hola"}},
		Model:    "gpt-4o-mini",
	})
	if err == nil {
		t.Fatal("expected an error on 429")
	}
	if !service.IsQuotaError(err) {
		t.Errorf("expected a quota error, got %v", err)
	}
}
