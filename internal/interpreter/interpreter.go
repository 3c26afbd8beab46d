// Package interpreter turns natural-language requests into resolved command
// lines, asking the configured provider first and falling back to local
// keyword matching.
package interpreter

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/quocvuong92/ai-shell/internal/api"
	"github.com/quocvuong92/ai-shell/internal/commands"
	"github.com/quocvuong92/ai-shell/internal/config"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// ErrInterpretationRejected is returned when a request resolves to nothing
var ErrInterpretationRejected = errors.New("could not interpret the command")

// Vocabulary is the set of command names the interpreter may emit
type Vocabulary interface {
	Has(name string) bool
	Descriptors() []commands.Descriptor
}

// Interpreter resolves natural-language requests
type Interpreter struct {
	vocab        Vocabulary
	completer    api.Completer
	systemPrompt string
	logger       *logging.Logger
}

// Option configures an Interpreter
type Option func(*Interpreter)

// WithLogger replaces the logger used for provider failures
func WithLogger(l *logging.Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.logger = l
		}
	}
}

// New creates an interpreter. A nil completer means only the local fallback
// is used.
func New(vocab Vocabulary, completer api.Completer, opts ...Option) *Interpreter {
	in := &Interpreter{
		vocab:        vocab,
		completer:    completer,
		systemPrompt: BuildSystemPrompt(vocab.Descriptors()),
		logger:       logging.DefaultLogger,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// NewFromConfig creates an interpreter backed by an HTTP client for cfg, or a
// fallback-only interpreter when cfg carries no credential.
func NewFromConfig(vocab Vocabulary, cfg config.ProviderConfig, logger *logging.Logger, clientOpts ...api.Option) (*Interpreter, error) {
	if !cfg.HasCredential() {
		return New(vocab, nil, WithLogger(logger)), nil
	}
	client, err := api.NewClient(cfg, logger, clientOpts...)
	if err != nil {
		return nil, err
	}
	return New(vocab, client, WithLogger(logger)), nil
}

// HasProvider reports whether requests are sent to a remote provider
func (in *Interpreter) HasProvider() bool {
	return in.completer != nil
}

// SystemPrompt returns the instruction sent with every request
func (in *Interpreter) SystemPrompt() string {
	return in.systemPrompt
}

// Interpret resolves request into one or more command lines. Provider failures
// are logged and never returned; the local fallback answers instead.
func (in *Interpreter) Interpret(ctx context.Context, request string) ([]string, error) {
	request = strings.TrimSpace(request)
	if in.completer == nil {
		return Fallback(request)
	}

	start := time.Now()
	reply, err := in.completer.Complete(ctx, in.systemPrompt, UserPrompt(request))
	if err != nil {
		in.logger.Warn("provider call failed, using local fallback", logging.Fields{
			"error":       err.Error(),
			"duration_ms": logging.Since(start),
		})
		return Fallback(request)
	}

	in.logger.Debug("provider replied", logging.Fields{
		"duration_ms": logging.Since(start),
		"reply_len":   len(reply),
	})
	return ParseReply(reply, in.vocab)
}
