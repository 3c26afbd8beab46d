// Package display handles terminal output: colored results and errors, the
// spinner shown while the provider is consulted, and markdown rendering.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"github.com/quocvuong92/ai-shell/internal/commands"
)

var (
	// Output receives command output
	Output io.Writer = color.Output
	// ErrOutput receives errors and warnings
	ErrOutput io.Writer = color.Error

	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	echoColor    = color.New(color.FgCyan)
	failColor    = color.New(color.FgRed)

	rendererMu sync.Mutex
	renderer   *glamour.TermRenderer
)

// SetNoColor disables colored output
func SetNoColor(noColor bool) {
	color.NoColor = noColor
}

// InitRenderer prepares the markdown renderer
func InitRenderer() error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	rendererMu.Lock()
	renderer = r
	rendererMu.Unlock()
	return nil
}

// RenderMarkdown renders md for the terminal, or returns it unchanged when no
// renderer has been initialized or rendering fails.
func RenderMarkdown(md string) string {
	rendererMu.Lock()
	r := renderer
	rendererMu.Unlock()
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// ShowError prints an error message
func ShowError(msg string) {
	fmt.Fprintln(ErrOutput, errorColor.Sprint("Error: ")+msg)
}

// ShowWarning prints a warning message
func ShowWarning(msg string) {
	fmt.Fprintln(ErrOutput, warningColor.Sprint("Warning: ")+msg)
}

// ShowInfo prints a plain line
func ShowInfo(msg string) {
	fmt.Fprintln(Output, msg)
}

// ShowResult prints a command result. Failed output is red; "$ cmd" echo lines
// of a natural-language expansion are highlighted.
func ShowResult(res commands.Result) {
	if res.Output == "" {
		return
	}
	if !res.Succeeded {
		fmt.Fprintln(Output, failColor.Sprint(res.Output))
		return
	}

	lines := strings.Split(res.Output, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "$ ") {
			lines[i] = echoColor.Sprint(line)
		}
	}
	out := strings.Join(lines, "\n")
	if strings.HasSuffix(out, "\n") {
		fmt.Fprint(Output, out)
		return
	}
	fmt.Fprintln(Output, out)
}
