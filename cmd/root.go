package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/quocvuong92/ai-shell/internal/api"
	"github.com/quocvuong92/ai-shell/internal/commands"
	"github.com/quocvuong92/ai-shell/internal/config"
	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/display"
	"github.com/quocvuong92/ai-shell/internal/history"
	"github.com/quocvuong92/ai-shell/internal/interpreter"
	"github.com/quocvuong92/ai-shell/internal/logging"
	"github.com/quocvuong92/ai-shell/internal/session"
)

// App holds the application state
type App struct {
	cfg *config.Config
	fs  afero.Fs

	// probe backs cpu, mem, ps and disk; nil uses the host
	probe commands.SystemProbe
}

// NewApp creates a new App instance with default configuration
func NewApp() *App {
	return &App{
		cfg: config.NewConfig(),
		fs:  afero.NewOsFs(),
	}
}

// Execute runs the root command
func Execute() {
	app := NewApp()

	rootCmd := &cobra.Command{
		Use:   "ai-shell",
		Short: "A command shell that understands natural language",
		Long: `ai-shell is an interactive command shell. Type literal commands such as
ls, cd or cpu, or prefix a request with "ai" to have it translated into
commands by an OpenAI-compatible or Gemini provider.

Without a configured API key, requests are resolved by simple local
keyword matching.

Examples:
  ai-shell                      # Start the interactive shell
  ai-shell setup                # Configure the provider API key
  ai-shell status               # Show the resolved configuration
  ai-shell serve --addr :5000   # Serve the shell over HTTP and WebSocket`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.prepare(); err != nil {
				return err
			}
			return app.runInteractive()
		},
	}

	rootCmd.AddCommand(NewServeCmd(app))
	rootCmd.AddCommand(NewSetupCmd(app))
	rootCmd.AddCommand(NewStatusCmd(app))

	if err := rootCmd.Execute(); err != nil {
		display.ShowError(err.Error())
		os.Exit(1)
	}
}

// prepare resolves configuration and applies the ambient settings
func (app *App) prepare() error {
	if err := app.cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	app.configureLogging()

	if app.cfg.Render {
		if err := display.InitRenderer(); err != nil {
			logging.Warn("markdown rendering disabled", logging.Fields{"error": err.Error()})
		}
	}
	return nil
}

// configureLogging applies the log level, format and file settings to the
// default logger. An unusable log file leaves logging on stderr.
func (app *App) configureLogging() {
	if app.cfg.LogLevel != "" {
		logging.SetLevel(logging.ParseLevel(app.cfg.LogLevel))
	}
	if app.cfg.LogFormat != "" {
		logging.SetFormat(logging.ParseFormat(app.cfg.LogFormat))
	}
	if app.cfg.LogFile == "" {
		return
	}
	f, err := app.fs.OpenFile(app.cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		display.ShowWarning(fmt.Sprintf("Could not open log file: %v", err))
		return
	}
	logging.SetOutput(f)
}

// sessionOptions controls how newSession wires a session
type sessionOptions struct {
	history *history.History
	spinner bool
}

// newSession builds the registry, execution context and interpreter for one
// session rooted at the process working directory.
func (app *App) newSession(opts sessionOptions) (*session.Session, error) {
	registry, err := commands.NewDefaultRegistry(app.fs, app.probe)
	if err != nil {
		return nil, err
	}

	var completer api.Completer
	if app.cfg.Provider.HasCredential() {
		client, err := api.NewClient(app.cfg.Provider, logging.DefaultLogger)
		if err != nil {
			return nil, err
		}
		completer = client
		if opts.spinner {
			completer = display.WithSpinner(client, "Thinking...")
		}
	}
	interp := interpreter.New(registry, completer)

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("could not determine working directory: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = cwd
	}
	env := commands.NewEnv(cwd, home, opts.history)

	sessOpts := []session.Option{session.WithLogger(logging.DefaultLogger)}
	if app.cfg.Render {
		sessOpts = append(sessOpts, session.WithHelpFormatter(display.RenderedHelp))
	}

	logging.Debug("session created", logging.Fields{
		"session":  env.ID,
		"cwd":      cwd,
		"provider": app.providerName(),
	})
	return session.New(registry, interp, env, sessOpts...), nil
}

// openHistory loads the persistent history, or an in-memory one when
// persistence is disabled or unavailable.
func (app *App) openHistory() *history.History {
	if !app.cfg.HistoryEnabled || app.cfg.HistoryFile == "" {
		return history.New(constants.HistoryCapacity)
	}
	h := history.NewPersistent(app.fs, app.cfg.HistoryFile, constants.HistoryCapacity)
	if err := h.Load(); err != nil {
		display.ShowWarning(fmt.Sprintf("Could not load history: %v", err))
	}
	return h
}

// providerName returns a human-readable provider name
func (app *App) providerName() string {
	if !app.cfg.Provider.HasCredential() {
		return "none (local keyword matching)"
	}
	switch app.cfg.Provider.Kind {
	case config.ProviderGemini:
		return "Google Gemini"
	default:
		return "OpenAI-compatible"
	}
}

// signalContext returns a context cancelled by Ctrl+C while a command runs
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
