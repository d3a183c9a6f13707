package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tjfontaine/policy-llm-gateway/internal/policy"
)

func TestForTenant_CredentialFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		creds    policy.Credentials
		want     string
	}{
		{"openai with key", "openai", policy.Credentials{OpenAI: &policy.OpenAICredentials{APIKey: "sk-x"}}, "openai"},
		{"openai without key", "openai", policy.Credentials{}, "mock"},
		{"openai empty key", "openai", policy.Credentials{OpenAI: &policy.OpenAICredentials{}}, "mock"},
		{"azure complete", "azure", policy.Credentials{AzureOpenAI: &policy.AzureCredentials{
			APIKey: "k", Endpoint: "https://x.openai.azure.com", Deployment: "gpt4",
		}}, "azure"},
		{"azure missing deployment", "azure", policy.Credentials{AzureOpenAI: &policy.AzureCredentials{
			APIKey: "k", Endpoint: "https://x.openai.azure.com",
		}}, "mock"},
		{"ollama no creds needed", "ollama", policy.Credentials{}, "ollama"},
		{"unknown name", "anthropic", policy.Credentials{}, "echo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ForTenant(tt.provider, tt.creds)
			if p.Name() != tt.want {
				t.Errorf("ForTenant(%q) = %q, want %q", tt.provider, p.Name(), tt.want)
			}
		})
	}
}

func TestMockAndEcho(t *testing.T) {
	got, err := Mock{}.Complete(context.Background(), "any", "hello")
	if err != nil || got != "[mock] hello" {
		t.Errorf("Mock.Complete = (%q, %v), want ([mock] hello, nil)", got, err)
	}
	got, err = Echo{}.Complete(context.Background(), "any", "hello")
	if err != nil || got != "[echo] hello" {
		t.Errorf("Echo.Complete = (%q, %v), want ([echo] hello, nil)", got, err)
	}
}

func TestOpenAI_Complete(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq chatRequest

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hi there"}},
			},
		})
	}))
	defer backend.Close()

	p := NewOpenAI("sk-test", WithOpenAIBaseURL(backend.URL))
	got, err := p.Complete(context.Background(), "gpt-4o", "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "hi there" {
		t.Errorf("response = %q, want %q", got, "hi there")
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotReq.Model != "gpt-4o" || gotReq.MaxTokens != 512 {
		t.Errorf("request = %+v", gotReq)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "hello" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestOpenAI_BackendError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited upstream", http.StatusTooManyRequests)
	}))
	defer backend.Close()

	p := NewOpenAI("sk-test", WithOpenAIBaseURL(backend.URL))
	_, err := p.Complete(context.Background(), "gpt-4o", "hello")
	if err == nil {
		t.Fatal("expected error from non-2xx backend")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error %q should carry backend status", err)
	}
}

func TestAzureOpenAI_Complete(t *testing.T) {
	var gotKey, gotPath, gotVersion string
	var gotReq chatRequest

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		gotPath = r.URL.Path
		gotVersion = r.URL.Query().Get("api-version")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "azure says hi"}},
			},
		})
	}))
	defer backend.Close()

	p := NewAzureOpenAI("az-key", backend.URL, "gpt4-deploy")
	got, err := p.Complete(context.Background(), "ignored-model", "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "azure says hi" {
		t.Errorf("response = %q", got)
	}
	if gotKey != "az-key" {
		t.Errorf("api-key = %q", gotKey)
	}
	if gotPath != "/openai/deployments/gpt4-deploy/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotVersion != azureAPIVersion {
		t.Errorf("api-version = %q, want %q", gotVersion, azureAPIVersion)
	}
	// The deployment fixes the model; the request must not carry one
	if gotReq.Model != "" {
		t.Errorf("request model = %q, want empty", gotReq.Model)
	}
}

func TestOllama_Complete(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/complete" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["model"] != "llama3" || req["prompt"] != "hello" {
			t.Errorf("request = %v", req)
		}
		json.NewEncoder(w).Encode(map[string]string{"completion": "from ollama"})
	}))
	defer backend.Close()

	p := NewOllama(backend.URL)
	got, err := p.Complete(context.Background(), "llama3", "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "from ollama" {
		t.Errorf("response = %q", got)
	}
}

func TestOllama_TextFieldFallback(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "legacy field"})
	}))
	defer backend.Close()

	p := NewOllama(backend.URL)
	got, err := p.Complete(context.Background(), "llama3", "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "legacy field" {
		t.Errorf("response = %q", got)
	}
}

func TestComplete_ContextCancellation(t *testing.T) {
	started := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect
		io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer backend.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	p := NewOpenAI("sk-test", WithOpenAIBaseURL(backend.URL))
	if _, err := p.Complete(ctx, "gpt-4o", "hello"); err == nil {
		t.Fatal("expected error after context cancellation")
	}
}
