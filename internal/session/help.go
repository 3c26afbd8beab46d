package session

import (
	"fmt"
	"strings"

	"github.com/quocvuong92/ai-shell/internal/commands"
	"github.com/quocvuong92/ai-shell/internal/constants"
)

// Builtin describes a line handled by the session itself
type Builtin struct {
	Usage       string
	Description string
}

// Builtins are intercepted before the registry
var Builtins = []Builtin{
	{"help", "Show this help"},
	{"history", "Show command history"},
	{"clear", "Clear screen"},
	{"exit", "Exit the shell"},
	{constants.NaturalLanguagePrefix + " <request>", "Interpret a natural-language request"},
}

// Examples are shown at the end of the help listing
var Examples = []string{
	"ai create a folder called test and move file1.txt into it",
	"ai show me the files",
	"ls -la",
	"cd /home/user",
	"cpu",
}

// HelpText renders the plain-text help listing
func HelpText(descriptors []commands.Descriptor) string {
	var b strings.Builder
	b.WriteString("ai-shell - Available Commands:\n\n")

	b.WriteString("Commands:\n")
	for _, d := range descriptors {
		fmt.Fprintf(&b, "  %-22s - %s\n", d.Usage, d.Description)
	}

	b.WriteString("\nShell Features:\n")
	for _, bi := range Builtins {
		fmt.Fprintf(&b, "  %-22s - %s\n", bi.Usage, bi.Description)
	}

	b.WriteString("\nExamples:\n")
	for i, ex := range Examples {
		b.WriteString("  " + ex)
		if i < len(Examples)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
