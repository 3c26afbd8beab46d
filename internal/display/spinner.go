package display

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"

	"github.com/quocvuong92/ai-shell/internal/api"
)

// SpinnerWriter is where spinners draw
var SpinnerWriter io.Writer = os.Stderr

// Spinner wraps a terminal spinner
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner creates a spinner with a message
func NewSpinner(msg string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(SpinnerWriter))
	s.Suffix = " " + msg
	return &Spinner{s: s}
}

// Start shows the spinner
func (sp *Spinner) Start() {
	sp.s.Start()
}

// Stop hides the spinner
func (sp *Spinner) Stop() {
	sp.s.Stop()
}

// spinnerCompleter shows a spinner for the duration of each provider call
type spinnerCompleter struct {
	next api.Completer
	msg  string
}

// WithSpinner wraps c so every Complete call shows a spinner with msg
func WithSpinner(c api.Completer, msg string) api.Completer {
	return &spinnerCompleter{next: c, msg: msg}
}

func (sc *spinnerCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	sp := NewSpinner(sc.msg)
	sp.Start()
	defer sp.Stop()
	return sc.next.Complete(ctx, systemPrompt, userPrompt)
}
