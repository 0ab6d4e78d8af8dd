package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIAdapterGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "바르셀로나는 좋아요"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer srv.Close()

	a, err := NewOpenAIAdapter("test-key", WithBaseURL(srv.URL+"/"), WithMaxTokens(256), WithTemperature(0.2))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	resp, err := a.Generate(context.Background(), "gpt-4o", "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Content != "바르셀로나는 좋아요" || resp.Adapter != "openai" || resp.Model != "gpt-4o" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 17 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if got["max_completion_tokens"] != float64(256) || got["temperature"] != 0.2 {
		t.Fatalf("options not sent: %v", got)
	}
}

func TestOpenAIAdapterStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit"}}`))
	}))
	defer srv.Close()

	a, err := NewOpenAIAdapter("test-key", WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	_, err = a.Generate(context.Background(), "gpt-4o", "hello")
	var adapterErr *AdapterError
	if !errors.As(err, &adapterErr) {
		t.Fatalf("expected AdapterError, got %v", err)
	}
	if adapterErr.Provider != "openai" || adapterErr.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected error %+v", adapterErr)
	}
	if !IsTransient(err) {
		t.Fatalf("429 should be transient")
	}
}

func TestProviderConstructorsRequireKeys(t *testing.T) {
	if _, err := NewOpenAIAdapter(""); err == nil {
		t.Errorf("openai: expected error")
	}
	if _, err := NewAnthropicAdapter(""); err == nil {
		t.Errorf("anthropic: expected error")
	}
	if _, err := NewGoogleAdapter(""); err == nil {
		t.Errorf("google: expected error")
	}
}

func TestAdapterErrorMessage(t *testing.T) {
	tests := []struct {
		err  *AdapterError
		want string
	}{
		{&AdapterError{Provider: "google", Status: 503, Err: errors.New("unavailable")}, "google: status 503: unavailable"},
		{&AdapterError{Provider: "openai", Err: errors.New("dial tcp")}, "openai: dial tcp"},
		{&AdapterError{Status: 429}, "adapter: status 429"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
