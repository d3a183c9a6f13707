package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const azureAPIVersion = "2023-10-01"

// AzureOption configures the Azure OpenAI provider.
type AzureOption func(*AzureOpenAI)

// WithAzureHTTPClient sets a custom HTTP client.
func WithAzureHTTPClient(client *http.Client) AzureOption {
	return func(p *AzureOpenAI) {
		p.httpClient = client
	}
}

// AzureOpenAI calls an Azure OpenAI deployment. The model is fixed by the
// deployment, so the request model field is omitted.
type AzureOpenAI struct {
	apiKey     string
	endpoint   string
	deployment string
	httpClient *http.Client
}

// NewAzureOpenAI creates an Azure OpenAI provider.
func NewAzureOpenAI(apiKey, endpoint, deployment string, opts ...AzureOption) *AzureOpenAI {
	p := &AzureOpenAI{
		apiKey:     apiKey,
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		deployment: deployment,
		httpClient: newHTTPClient(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *AzureOpenAI) Name() string { return "azure" }

func (p *AzureOpenAI) Complete(ctx context.Context, _ string, prompt string) (string, error) {
	payload := chatRequest{
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: 512,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		p.endpoint, p.deployment, azureAPIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("azure openai call: %w", err)
	}
	defer resp.Body.Close()

	return decodeChatResponse(resp)
}
