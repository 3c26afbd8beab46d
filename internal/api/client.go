package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quocvuong92/ai-shell/internal/config"
	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// Completer turns a system and user prompt into reply text.
// This interface enables dependency injection and easier testing.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Client calls the configured provider over HTTP with a bounded timeout and
// retries for transient failures.
type Client struct {
	httpClient *http.Client
	provider   Provider
	config     config.ProviderConfig
	timeout    time.Duration
	newBackoff BackoffFactory
}

var _ Completer = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout replaces the overall budget of one Complete call
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithBackoff replaces the retry schedule
func WithBackoff(f BackoffFactory) Option {
	return func(c *Client) { c.newBackoff = f }
}

// NewClient creates a client for cfg.Kind. Requests are logged at debug level
// through logger with the credential redacted.
func NewClient(cfg config.ProviderConfig, logger *logging.Logger, opts ...Option) (*Client, error) {
	provider, err := NewProvider(cfg.Kind)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logging.DefaultLogger
	}
	transport := logging.NewLoggingRoundTripper(http.DefaultTransport, logging.NewHTTPLogger(logger), true)

	c := &Client{
		httpClient: &http.Client{Transport: transport},
		provider:   provider,
		config:     cfg,
		timeout:    constants.DefaultProviderTimeout,
		newBackoff: NewRetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Provider returns the provider variant in use
func (c *Client) Provider() Provider {
	return c.provider
}

// Complete sends one prompt pair and returns the reply text. Failures wrap
// ErrProviderTransport or ErrProviderParse.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := WithRetry(c.newBackoff(ctx), func() ([]byte, error) {
		return c.send(ctx, systemPrompt, userPrompt)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("%w: %v", ErrProviderTransport, err)
		}
		return "", err
	}

	return c.provider.ParseResponse(body)
}

func (c *Client) send(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error) {
	req, err := c.provider.BuildRequest(ctx, c.config, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %v", ErrProviderTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrProviderTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errMsg := fmt.Sprintf("status code %d", resp.StatusCode)
		if msg := c.provider.ParseError(body); msg != "" {
			errMsg = fmt.Sprintf("%s (status code %d)", msg, resp.StatusCode)
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API error: %s", c.provider.Kind(), errMsg),
		}
	}

	return body, nil
}
