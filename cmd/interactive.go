package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/elk-language/go-prompt"
	istrings "github.com/elk-language/go-prompt/strings"
	"github.com/spf13/afero"

	"github.com/quocvuong92/ai-shell/internal/display"
	"github.com/quocvuong92/ai-shell/internal/history"
	"github.com/quocvuong92/ai-shell/internal/session"
)

// InteractiveSession holds the state for the terminal REPL
type InteractiveSession struct {
	app      *App
	session  *session.Session
	history  *history.History
	exitFlag bool
}

// completer suggests command names for the first word and entries of the
// working directory for the words that follow.
func (s *InteractiveSession) completer(d prompt.Document) ([]prompt.Suggest, istrings.RuneNumber, istrings.RuneNumber) {
	text := d.TextBeforeCursor()
	endIndex := d.CurrentRuneIndex()
	w := d.GetWordBeforeCursor()
	startIndex := endIndex - istrings.RuneCountInString(w)

	if strings.TrimSpace(text) == "" {
		return []prompt.Suggest{}, startIndex, endIndex
	}

	if !strings.Contains(text, " ") {
		return prompt.FilterHasPrefix(s.commandSuggestions(), w, true), startIndex, endIndex
	}

	// Natural-language requests are free text
	if strings.HasPrefix(strings.ToLower(text), "ai ") {
		return []prompt.Suggest{}, startIndex, endIndex
	}

	return prompt.FilterHasPrefix(s.pathSuggestions(), w, false), startIndex, endIndex
}

// commandSuggestions lists registry commands followed by the shell builtins
func (s *InteractiveSession) commandSuggestions() []prompt.Suggest {
	var suggestions []prompt.Suggest
	for _, d := range s.session.Registry().Descriptors() {
		suggestions = append(suggestions, prompt.Suggest{Text: d.Name, Description: d.Description})
	}
	for _, b := range session.Builtins {
		name := strings.Fields(b.Usage)[0]
		suggestions = append(suggestions, prompt.Suggest{Text: name, Description: b.Description})
	}
	return suggestions
}

// pathSuggestions lists the entries of the working directory
func (s *InteractiveSession) pathSuggestions() []prompt.Suggest {
	entries, err := afero.ReadDir(s.app.fs, s.session.WorkingDir())
	if err != nil {
		return []prompt.Suggest{}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	suggestions := make([]prompt.Suggest, 0, len(entries))
	for _, e := range entries {
		desc := "file"
		if e.IsDir() {
			desc = "directory"
		}
		suggestions = append(suggestions, prompt.Suggest{Text: e.Name(), Description: desc})
	}
	return suggestions
}

// runInteractive starts the REPL and blocks until the user exits
func (app *App) runInteractive() error {
	hist := app.openHistory()
	sess, err := app.newSession(sessionOptions{history: hist, spinner: true})
	if err != nil {
		return err
	}

	fmt.Println("ai-shell - Natural Language Command Shell")
	fmt.Printf("Provider: %s\n", app.providerName())
	if app.cfg.Provider.HasCredential() {
		fmt.Printf("Model: %s\n", app.cfg.Provider.Model)
	} else {
		display.ShowWarning("No API key configured. Run 'ai-shell setup' to enable the AI provider.")
	}
	fmt.Println(`Type "help" for commands, "ai <request>" for natural language, Ctrl+D to quit`)
	fmt.Println()

	s := &InteractiveSession{
		app:     app,
		session: sess,
		history: hist,
	}

	p := prompt.New(
		s.executor,
		prompt.WithCompleter(s.completer),
		prompt.WithPrefixCallback(sess.Prompt),
		prompt.WithTitle("ai-shell"),
		prompt.WithHistory(hist.Entries()),
		prompt.WithPrefixTextColor(prompt.Green),
		prompt.WithSuggestionBGColor(prompt.DarkBlue),
		prompt.WithSuggestionTextColor(prompt.White),
		prompt.WithSelectedSuggestionBGColor(prompt.Cyan),
		prompt.WithSelectedSuggestionTextColor(prompt.Black),
		prompt.WithDescriptionBGColor(prompt.DarkBlue),
		prompt.WithDescriptionTextColor(prompt.LightGray),
		prompt.WithSelectedDescriptionBGColor(prompt.Cyan),
		prompt.WithSelectedDescriptionTextColor(prompt.Black),
		prompt.WithScrollbarBGColor(prompt.DarkGray),
		prompt.WithScrollbarThumbColor(prompt.White),
		prompt.WithMaxSuggestion(10),
		prompt.WithExitChecker(func(in string, breakline bool) bool {
			return s.exitFlag
		}),
		prompt.WithKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(p *prompt.Prompt) bool {
				fmt.Println()
				s.quit()
				return false
			},
		}),
		prompt.WithKeyBind(prompt.KeyBind{
			Key: prompt.ControlD,
			Fn: func(p *prompt.Prompt) bool {
				if p.Buffer().Text() == "" {
					s.quit()
				}
				return false
			},
		}),
	)

	p.Run()
	return nil
}

// quit saves history and stops the REPL
func (s *InteractiveSession) quit() {
	fmt.Println("Goodbye!")
	s.saveHistory()
	s.exitFlag = true
}

// saveHistory persists the line history if it is file backed
func (s *InteractiveSession) saveHistory() {
	if s.history == nil || s.history.Path() == "" {
		return
	}
	if err := s.history.Save(); err != nil {
		display.ShowWarning(fmt.Sprintf("Could not save history: %v", err))
	}
}

// executor runs one input line through the session
func (s *InteractiveSession) executor(input string) {
	if s.exitFlag {
		return
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := s.session.Process(ctx, input)
	if errors.Is(err, session.ErrExit) {
		s.quit()
		return
	}
	if err != nil {
		display.ShowError(err.Error())
		return
	}
	display.ShowResult(res)
}
