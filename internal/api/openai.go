package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/quocvuong92/ai-shell/internal/config"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the Chat Completions API request
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// OpenAIProvider speaks the OpenAI-compatible chat completions API
type OpenAIProvider struct{}

var _ Provider = OpenAIProvider{}

func (OpenAIProvider) Kind() string { return config.ProviderOpenAI }

func (OpenAIProvider) BuildRequest(ctx context.Context, cfg config.ProviderConfig, systemPrompt, userPrompt string) (*http.Request, error) {
	reqBody := ChatRequest{
		Model: cfg.Model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.Credential)
	return req, nil
}

func (OpenAIProvider) ParseResponse(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: invalid JSON", ErrProviderParse)
	}
	content := gjson.GetBytes(body, "choices.0.message.content")
	if content.Type != gjson.String {
		return "", fmt.Errorf("%w: missing choices[0].message.content", ErrProviderParse)
	}
	return strings.TrimSpace(content.String()), nil
}

func (OpenAIProvider) ParseError(body []byte) string {
	return gjson.GetBytes(body, "error.message").String()
}
