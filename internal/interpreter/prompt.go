package interpreter

import (
	"fmt"
	"strings"

	"github.com/quocvuong92/ai-shell/internal/commands"
)

const systemPromptTemplate = `You are a helpful assistant that converts natural language commands to ai-shell commands.

Available commands:
%s

Rules:
1. Return ONLY the shell commands, one per line
2. Do not include explanations or additional text
3. Use exact command names from the available commands
4. For complex operations, break them into multiple commands
5. If the request is unclear or impossible, return "ERROR: [reason]"

Examples:
User: "create a folder called test"
Assistant: mkdir test

User: "show me the files"
Assistant: ls

User: "create a folder called backup and move file.txt into it"
Assistant: mkdir backup
mv file.txt backup/

User: "what's my CPU usage"
Assistant: cpu

Return only the shell commands:`

// BuildSystemPrompt renders the fixed instruction with one line per descriptor
func BuildSystemPrompt(descriptors []commands.Descriptor) string {
	var b strings.Builder
	for i, d := range descriptors {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "  %s: %s", d.Name, d.Description)
	}
	return fmt.Sprintf(systemPromptTemplate, b.String())
}

// UserPrompt wraps the raw request
func UserPrompt(request string) string {
	return fmt.Sprintf("Convert this natural language command to shell commands: '%s'", request)
}
