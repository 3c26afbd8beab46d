// Package session implements the dispatcher that classifies each input line as
// natural language or a literal command and runs it against one execution
// context.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/quocvuong92/ai-shell/internal/commands"
	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/interpreter"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// ErrExit is returned by Process when the user asks to end the session
var ErrExit = errors.New("exit requested")

// Fixed user-visible messages
const (
	MsgNotInterpreted = "Could not interpret the command"
	MsgNoHistory      = "No history available"

	// ClearScreen is the ANSI sequence printed by the clear builtin
	ClearScreen = "\033[2J\033[H"
)

// Interpreter resolves a natural-language request into command lines
type Interpreter interface {
	Interpret(ctx context.Context, request string) ([]string, error)
}

// HelpFormatter renders the help listing
type HelpFormatter func(descriptors []commands.Descriptor) string

// Session dispatches input lines for one user. Process calls are serialized;
// Prompt and WorkingDir may be called from any goroutine.
type Session struct {
	mu          sync.Mutex
	registry    *commands.Registry
	interpreter Interpreter
	env         *commands.Env
	user        string
	host        string
	help        HelpFormatter
	logger      *logging.Logger

	// cwd mirrors env.WorkingDir after each Process call
	cwd atomic.Value
}

// Option configures a Session
type Option func(*Session)

// WithIdentity sets the user and host shown in the prompt
func WithIdentity(user, host string) Option {
	return func(s *Session) {
		if user != "" {
			s.user = user
		}
		if host != "" {
			s.host = host
		}
	}
}

// WithHelpFormatter replaces the plain-text help listing
func WithHelpFormatter(f HelpFormatter) Option {
	return func(s *Session) {
		if f != nil {
			s.help = f
		}
	}
}

// WithLogger sets the logger for dispatch diagnostics
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a session. A nil interpreter resolves requests with the local
// fallback only.
func New(registry *commands.Registry, interp Interpreter, env *commands.Env, opts ...Option) *Session {
	if interp == nil {
		interp = interpreter.New(registry, nil)
	}
	s := &Session{
		registry:    registry,
		interpreter: interp,
		env:         env,
		user:        defaultUser(),
		host:        defaultHost(),
		help:        HelpText,
		logger:      logging.DefaultLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cwd.Store(env.WorkingDir)
	return s
}

// Env returns the execution context
func (s *Session) Env() *commands.Env {
	return s.env
}

// Registry returns the command registry
func (s *Session) Registry() *commands.Registry {
	return s.registry
}

// WorkingDir returns the working directory as of the last completed line
func (s *Session) WorkingDir() string {
	return s.cwd.Load().(string)
}

// Prompt renders "user@host:dir$ " with the base name of the working directory
func (s *Session) Prompt() string {
	dir := filepath.Base(s.WorkingDir())
	if dir == "" || dir == "/" || dir == "." {
		dir = "~"
	}
	return fmt.Sprintf("%s@%s:%s$ ", s.user, s.host, dir)
}

// Process runs one input line. The only error returned is ErrExit; every other
// failure is reported through a failed Result.
func (s *Session) Process(ctx context.Context, line string) (commands.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return commands.Result{Succeeded: true}, nil
	}

	defer func() {
		s.env.History.Add(trimmed)
		s.cwd.Store(s.env.WorkingDir)
	}()

	if request, ok := naturalLanguageRequest(trimmed); ok {
		return s.processNaturalLanguage(ctx, request)
	}
	return s.processLiteral(ctx, trimmed)
}

func naturalLanguageRequest(line string) (string, bool) {
	prefix := constants.NaturalLanguagePrefix + " "
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	return strings.TrimSpace(line[len(prefix):]), true
}

// processNaturalLanguage expands request and runs each resolved line through
// the literal path. Resolved lines are never interpreted again.
func (s *Session) processNaturalLanguage(ctx context.Context, request string) (commands.Result, error) {
	resolved, err := s.interpreter.Interpret(ctx, request)
	if err != nil {
		s.logger.Debug("natural language request rejected", logging.Fields{
			"request": request,
			"error":   err.Error(),
		})
		return commands.Result{Succeeded: false, Output: MsgNotInterpreted}, nil
	}

	if len(resolved) > constants.MaxResolvedCommands {
		s.logger.Warn("resolved command list truncated", logging.Fields{
			"resolved": len(resolved),
			"limit":    constants.MaxResolvedCommands,
		})
		resolved = resolved[:constants.MaxResolvedCommands]
	}

	parts := make([]string, 0, 2*len(resolved))
	for _, cmdLine := range resolved {
		res, err := s.processLiteral(ctx, cmdLine)
		parts = append(parts, "$ "+cmdLine, res.Output)
		if errors.Is(err, ErrExit) {
			return commands.Result{Succeeded: true, Output: strings.Join(parts, "\n")}, err
		}
	}
	return commands.Result{Succeeded: true, Output: strings.Join(parts, "\n")}, nil
}

func (s *Session) processLiteral(ctx context.Context, line string) (commands.Result, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return commands.Result{Succeeded: true}, nil
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]

	switch name {
	case "exit":
		return commands.Result{Succeeded: true}, ErrExit
	case "help":
		return commands.Result{Succeeded: true, Output: s.help(s.registry.Descriptors())}, nil
	case "history":
		return s.showHistory(), nil
	case "clear":
		return commands.Result{Succeeded: true, Output: ClearScreen}, nil
	}

	res, err := s.registry.Execute(ctx, name, args, s.env)
	if err != nil {
		s.logger.Debug("command failed", logging.Fields{
			"command": name,
			"session": s.env.ID,
			"error":   err.Error(),
		})
	}
	return res, nil
}

func (s *Session) showHistory() commands.Result {
	entries := s.env.History.Entries()
	if len(entries) == 0 {
		return commands.Result{Succeeded: true, Output: MsgNoHistory}
	}
	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = fmt.Sprintf("%4d  %s", i+1, entry)
	}
	return commands.Result{Succeeded: true, Output: strings.Join(lines, "\n")}
}

func defaultUser() string {
	for _, key := range []string{"USER", "USERNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "user"
}

func defaultHost() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "ai-shell"
}
