package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/quocvuong92/ai-shell/internal/config"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// NewStatusCmd creates the status command
func NewStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the resolved configuration",
		Long: `Show which provider, model and credential ai-shell will use, and where
each setting came from.

Examples:
  ai-shell status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.prepare(); err != nil {
				return err
			}
			app.writeStatus(cmd.OutOrStdout())
			return nil
		},
	}
}

// writeStatus prints the resolved configuration with the credential redacted
func (app *App) writeStatus(w io.Writer) {
	p := app.cfg.Provider

	fmt.Fprintf(w, "Provider:    %s\n", app.providerName())
	if p.HasCredential() {
		fmt.Fprintf(w, "Model:       %s\n", p.Model)
		fmt.Fprintf(w, "Endpoint:    %s\n", p.Endpoint)
		fmt.Fprintf(w, "API key:     %s (from %s)\n", logging.RedactSecret(p.Credential), app.cfg.CredentialSource)
	} else {
		fmt.Fprintln(w, "API key:     not configured (run 'ai-shell setup')")
	}

	settings := "none"
	for _, path := range config.GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			settings = path
			break
		}
	}
	fmt.Fprintf(w, "Settings:    %s\n", settings)

	if app.cfg.HistoryEnabled && app.cfg.HistoryFile != "" {
		fmt.Fprintf(w, "History:     %s\n", app.cfg.HistoryFile)
	} else {
		fmt.Fprintln(w, "History:     disabled")
	}
}
