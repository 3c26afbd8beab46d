package interpreter

import (
	"fmt"
	"strings"
)

// errorSentinel starts a provider reply that refuses the request
const errorSentinel = "ERROR:"

// ParseReply extracts resolved command lines from provider reply text. Only
// lines whose first token is a name known to vocab survive, in reply order.
func ParseReply(reply string, vocab Vocabulary) ([]string, error) {
	reply = strings.TrimSpace(reply)
	if strings.HasPrefix(reply, errorSentinel) {
		reason := strings.TrimSpace(strings.TrimPrefix(reply, errorSentinel))
		return nil, fmt.Errorf("%w: provider refused: %s", ErrInterpretationRejected, reason)
	}

	var lines []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		fields := strings.Fields(line)
		if !vocab.Has(fields[0]) {
			continue
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no recognised commands in reply", ErrInterpretationRejected)
	}
	return lines, nil
}
