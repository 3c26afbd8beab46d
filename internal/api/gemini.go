package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/quocvuong92/ai-shell/internal/config"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

// GeminiProvider speaks the Google generateContent API. The API has no system
// role, so the system prompt is prepended to the user prompt.
type GeminiProvider struct{}

var _ Provider = GeminiProvider{}

func (GeminiProvider) Kind() string { return config.ProviderGemini }

func (GeminiProvider) BuildRequest(ctx context.Context, cfg config.ProviderConfig, systemPrompt, userPrompt string) (*http.Request, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: systemPrompt + "\n\n" + userPrompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: cfg.MaxTokens,
			Temperature:     cfg.Temperature,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", cfg.Endpoint, err)
	}
	q := endpoint.Query()
	q.Set("key", cfg.Credential)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (GeminiProvider) ParseResponse(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: invalid JSON", ErrProviderParse)
	}
	text := gjson.GetBytes(body, "candidates.0.content.parts.0.text")
	if text.Type != gjson.String {
		return "", fmt.Errorf("%w: missing candidates[0].content.parts[0].text", ErrProviderParse)
	}
	return strings.TrimSpace(text.String()), nil
}

func (GeminiProvider) ParseError(body []byte) string {
	return gjson.GetBytes(body, "error.message").String()
}
