package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quocvuong92/ai-shell/internal/api"
	"github.com/quocvuong92/ai-shell/internal/commands"
	"github.com/quocvuong92/ai-shell/internal/config"
	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/display"
	"github.com/quocvuong92/ai-shell/internal/interpreter"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// verifyRequest is interpreted once a provider has been configured
const verifyRequest = "show me the files"

var (
	// errSetupSkipped is returned when the user chooses not to configure a provider
	errSetupSkipped = errors.New("setup skipped")
	errSetupAborted = errors.New("setup aborted: no input")
)

// verifyFunc resolves verifyRequest against a provider
type verifyFunc func(ctx context.Context, cfg config.ProviderConfig) ([]string, error)

// setupFlow asks for provider settings and stores them in the credential file
type setupFlow struct {
	in       *bufio.Reader
	out      io.Writer
	credPath string
	verify   verifyFunc
}

// NewSetupCmd creates the setup command
func NewSetupCmd(app *App) *cobra.Command {
	var initConfig bool
	var noVerify bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Configure the AI provider",
		Long: `Configure the AI provider used by "ai <request>".

The API key is stored in ~/.aishell_config, readable only by you. After
saving, a sample request is sent to confirm the key works.

Examples:
  ai-shell setup
  ai-shell setup --init-config   # Also write a commented settings file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if initConfig {
				path, err := config.CreateDefaultConfigFile()
				if err != nil {
					display.ShowWarning(err.Error())
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Settings file written to %s\n", path)
				}
			}

			credPath, err := config.CredentialFilePath()
			if err != nil {
				return err
			}

			flow := &setupFlow{
				in:       bufio.NewReader(cmd.InOrStdin()),
				out:      cmd.OutOrStdout(),
				credPath: credPath,
			}
			if !noVerify {
				flow.verify = app.verifyProvider
			}

			err = flow.run(cmd.Context())
			if errors.Is(err, errSetupSkipped) {
				fmt.Fprintln(cmd.OutOrStdout(), "Setup skipped. Requests will use local keyword matching.")
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&initConfig, "init-config", false, "Write a default settings file")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip the test request")
	return cmd
}

// run walks the user through provider selection
func (f *setupFlow) run(ctx context.Context) error {
	fmt.Fprintln(f.out, "ai-shell setup")
	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, "Choose a provider:")
	fmt.Fprintln(f.out, "  1) OpenAI")
	fmt.Fprintln(f.out, "  2) Google Gemini")
	fmt.Fprintln(f.out, "  3) Other OpenAI-compatible endpoint")
	fmt.Fprintln(f.out, "  4) Skip")

	choice, err := f.ask("Choice [1]: ")
	if err != nil {
		return err
	}

	cred := &config.CredentialFile{}
	switch choice {
	case "", "1":
		cred.Provider = config.ProviderOpenAI
	case "2":
		cred.Provider = config.ProviderGemini
	case "3":
		cred.Provider = config.ProviderOpenAI
		if cred.APIURL, err = f.askRequired("Endpoint URL: "); err != nil {
			return err
		}
	case "4":
		return errSetupSkipped
	default:
		return fmt.Errorf("invalid choice %q", choice)
	}

	if cred.APIKey, err = f.askRequired("API key: "); err != nil {
		return err
	}

	defaultModel := config.DefaultModel(cred.Provider)
	model, err := f.ask(fmt.Sprintf("Model [%s]: ", defaultModel))
	if err != nil {
		return err
	}
	if model != "" && model != defaultModel {
		cred.Model = model
	}

	if err := config.WriteCredentialFile(f.credPath, cred); err != nil {
		return err
	}
	fmt.Fprintf(f.out, "Saved credentials to %s\n", f.credPath)

	if f.verify == nil {
		return nil
	}
	return f.runVerify(ctx, providerConfigFrom(cred))
}

// runVerify sends verifyRequest and reports the resolved commands
func (f *setupFlow) runVerify(ctx context.Context, cfg config.ProviderConfig) error {
	fmt.Fprintf(f.out, "Testing with %q...\n", verifyRequest)
	lines, err := f.verify(ctx, cfg)
	if err != nil {
		return fmt.Errorf("provider test failed: %w", err)
	}
	fmt.Fprintf(f.out, "Provider resolved it to: %s\n", strings.Join(lines, "; "))
	fmt.Fprintln(f.out, "Setup complete. Start the shell with 'ai-shell'.")
	return nil
}

// ask prints prompt and reads one trimmed line
func (f *setupFlow) ask(prompt string) (string, error) {
	fmt.Fprint(f.out, prompt)
	line, err := f.in.ReadString('\n')
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && line != "":
	case errors.Is(err, io.EOF):
		return "", errSetupAborted
	default:
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// askRequired repeats prompt until a non-empty answer is given
func (f *setupFlow) askRequired(prompt string) (string, error) {
	for {
		answer, err := f.ask(prompt)
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
		fmt.Fprintln(f.out, "A value is required.")
	}
}

// providerConfigFrom fills provider defaults around a credential file
func providerConfigFrom(cred *config.CredentialFile) config.ProviderConfig {
	cfg := config.ProviderConfig{
		Kind:        cred.Provider,
		Credential:  cred.APIKey,
		Model:       cred.Model,
		Endpoint:    cred.APIURL,
		MaxTokens:   constants.DefaultMaxTokens,
		Temperature: constants.DefaultTemperature,
	}
	if cfg.Model == "" {
		cfg.Model = config.DefaultModel(cfg.Kind)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = config.DefaultEndpoint(cfg.Kind, cfg.Model)
	}
	return cfg
}

// verifyProvider sends verifyRequest straight to the provider so a bad key is
// reported instead of being masked by the local fallback.
func (app *App) verifyProvider(ctx context.Context, cfg config.ProviderConfig) ([]string, error) {
	registry, err := commands.NewDefaultRegistry(app.fs, app.probe)
	if err != nil {
		return nil, err
	}
	client, err := api.NewClient(cfg, logging.DefaultLogger)
	if err != nil {
		return nil, err
	}

	sp := display.NewSpinner("Contacting provider...")
	sp.Start()
	reply, err := client.Complete(ctx, interpreter.BuildSystemPrompt(registry.Descriptors()), interpreter.UserPrompt(verifyRequest))
	sp.Stop()
	if err != nil {
		return nil, err
	}
	return interpreter.ParseReply(reply, registry)
}
