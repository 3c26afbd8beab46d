package display

import (
	"fmt"
	"strings"

	"github.com/quocvuong92/ai-shell/internal/commands"
	"github.com/quocvuong92/ai-shell/internal/session"
)

// HelpMarkdown builds the help listing as markdown tables
func HelpMarkdown(descriptors []commands.Descriptor) string {
	var b strings.Builder
	b.WriteString("# ai-shell\n\n")

	b.WriteString("## Commands\n\n| Usage | Description |\n|---|---|\n")
	for _, d := range descriptors {
		fmt.Fprintf(&b, "| `%s` | %s |\n", escapeCell(d.Usage), d.Description)
	}

	b.WriteString("\n## Shell Features\n\n| Usage | Description |\n|---|---|\n")
	for _, bi := range session.Builtins {
		fmt.Fprintf(&b, "| `%s` | %s |\n", bi.Usage, bi.Description)
	}

	b.WriteString("\n## Examples\n\n```\n")
	for _, ex := range session.Examples {
		b.WriteString(ex + "\n")
	}
	b.WriteString("```\n")
	return b.String()
}

// RenderedHelp renders HelpMarkdown for the terminal. It satisfies
// session.HelpFormatter.
func RenderedHelp(descriptors []commands.Descriptor) string {
	return RenderMarkdown(HelpMarkdown(descriptors))
}

// escapeCell keeps a literal pipe from splitting a table cell
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
