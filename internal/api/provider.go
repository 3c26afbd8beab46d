package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/quocvuong92/ai-shell/internal/config"
)

// Errors
var (
	// ErrProviderTransport covers network failures, timeouts and non-2xx replies
	ErrProviderTransport = errors.New("provider transport error")
	// ErrProviderParse covers malformed JSON and missing reply text
	ErrProviderParse = errors.New("provider response could not be parsed")
)

// APIError represents an error with status code
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap lets callers match every HTTP failure as a transport error
func (e *APIError) Unwrap() error {
	return ErrProviderTransport
}

// Provider builds requests for and reads replies from one remote API shape
type Provider interface {
	// Kind returns the provider kind, "openai" or "gemini"
	Kind() string

	// BuildRequest creates the HTTP request for a system and user prompt
	BuildRequest(ctx context.Context, cfg config.ProviderConfig, systemPrompt, userPrompt string) (*http.Request, error)

	// ParseResponse extracts the reply text from a successful response body
	ParseResponse(body []byte) (string, error)

	// ParseError extracts a human readable message from an error body
	ParseError(body []byte) string
}

// NewProvider returns the provider for kind
func NewProvider(kind string) (Provider, error) {
	switch kind {
	case config.ProviderOpenAI:
		return OpenAIProvider{}, nil
	case config.ProviderGemini:
		return GeminiProvider{}, nil
	default:
		return nil, fmt.Errorf("%q: %w", kind, config.ErrInvalidProvider)
	}
}
