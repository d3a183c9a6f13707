package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultOllamaHost = "http://localhost:11434"

// Ollama calls a local or remote Ollama instance.
type Ollama struct {
	host       string
	httpClient *http.Client
}

// OllamaOption configures the Ollama provider.
type OllamaOption func(*Ollama)

// WithOllamaHTTPClient sets a custom HTTP client.
func WithOllamaHTTPClient(client *http.Client) OllamaOption {
	return func(p *Ollama) {
		p.httpClient = client
	}
}

// NewOllama creates an Ollama provider. An empty host selects the default
// local instance.
func NewOllama(host string, opts ...OllamaOption) *Ollama {
	if host == "" {
		host = defaultOllamaHost
	}
	p := &Ollama{
		host:       strings.TrimSuffix(host, "/"),
		httpClient: newHTTPClient(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Ollama) Name() string { return "ollama" }

func (p *Ollama) Complete(ctx context.Context, model, prompt string) (string, error) {
	payload := map[string]any{
		"model":      model,
		"prompt":     prompt,
		"max_tokens": 512,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.host+"/v1/complete", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed struct {
		Completion string `json:"completion"`
		Text       string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Completion != "" {
		return parsed.Completion, nil
	}
	return parsed.Text, nil
}
