package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := newOpenAICompatible("openai", "test-key", "gpt-4o-mini", server.URL+"/v1")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func chatCompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
	}
}

func TestOpenAIProvider_HappyPath(t *testing.T) {
	var gotFormat map[string]any
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotFormat, _ = body["response_format"].(map[string]any)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletion(`{"name":"Ada","age":36}`, "stop"))
	})

	resp, err := p.Generate(context.Background(), Request{
		System:    "You write onboarding quizzes.",
		Messages:  []Message{{Role: RoleUser, Content: "Describe a person."}},
		Schema:    testSchema(),
		MaxTokens: 256,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.InputTokens != 40 || resp.Usage.OutputTokens != 25 {
		t.Fatalf("usage = %+v, want 40/25", resp.Usage)
	}
	if resp.StopReason != "end" {
		t.Fatalf("stop reason = %q, want end", resp.StopReason)
	}
	if gotFormat["type"] != "json_schema" {
		t.Fatalf("response_format = %v, want json_schema", gotFormat)
	}
}

func TestOpenAIProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
		finish  string
		check   func(error) bool
	}{
		{"rate limit", http.StatusTooManyRequests, "", "", func(err error) bool {
			var e *ErrRateLimit
			return errors.As(err, &e)
		}},
		{"bad key", http.StatusUnauthorized, "", "", func(err error) bool {
			var e *ErrAuth
			return errors.As(err, &e)
		}},
		{"server error", http.StatusInternalServerError, "", "", func(err error) bool {
			var e *ErrProviderUnavailable
			return errors.As(err, &e)
		}},
		{"schema mismatch", http.StatusOK, `{"name":"Ada"}`, "stop", func(err error) bool {
			var e *ErrInvalidResponse
			return errors.As(err, &e)
		}},
		{"truncated", http.StatusOK, `{"name":`, "length", func(err error) bool {
			var e *ErrMaxTokensExceeded
			return errors.As(err, &e)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				if tt.status != http.StatusOK {
					_ = json.NewEncoder(w).Encode(map[string]any{
						"error": map[string]any{"type": "error", "message": http.StatusText(tt.status)},
					})
					return
				}
				_ = json.NewEncoder(w).Encode(chatCompletion(tt.content, tt.finish))
			})
			_, err := p.Generate(context.Background(), Request{
				Messages:  []Message{{Role: RoleUser, Content: "test"}},
				Schema:    testSchema(),
				MaxTokens: 100,
			})
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error: %T (%v)", err, err)
			}
		})
	}
}

func TestNewOpenAICompatibleProviders(t *testing.T) {
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-mini"})
	if err != nil {
		t.Fatal(err)
	}
	if p.ModelID() != "gpt-4.1-mini" {
		t.Errorf("alias resolved to %q", p.ModelID())
	}

	or, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "k", Model: "anthropic/claude-3-haiku"})
	if err != nil {
		t.Fatal(err)
	}
	if or.ModelID() != "anthropic/claude-3-haiku" {
		t.Errorf("openrouter model = %q, want pass-through", or.ModelID())
	}

	if _, err := NewOpenRouterProvider(OpenRouterConfig{Model: "x"}); err == nil {
		t.Error("expected error for empty API key")
	}
	if _, err := NewOpenAIProvider(OpenAIConfig{}); err == nil {
		t.Error("expected error for empty API key")
	}
}
