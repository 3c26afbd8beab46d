package interpreter

import (
	"fmt"
	"slices"
	"strings"
)

var (
	createWords    = []string{"create", "make", "new"}
	directoryWords = []string{"folder", "directory"}
	showWords      = []string{"show", "display", "list"}

	// fillerWords sit between "folder" and the name, as in "a folder called test"
	fillerWords = []string{"called", "named"}
)

// showCategories are evaluated in order; the first match wins
var showCategories = []struct {
	words   []string
	command string
}{
	{[]string{"file", "files"}, "ls"},
	{[]string{"cpu", "processor"}, "cpu"},
	{[]string{"memory", "ram"}, "mem"},
	{[]string{"process", "processes"}, "ps"},
	{[]string{"disk", "storage"}, "disk"},
}

// Fallback resolves a request with local keyword matching. It is a pure
// function of the lower-cased request.
func Fallback(request string) ([]string, error) {
	tokens := tokenize(request)

	if containsAny(tokens, createWords) && containsAny(tokens, directoryWords) {
		if name, ok := directoryName(tokens); ok {
			return []string{"mkdir " + name}, nil
		}
	}

	if containsAny(tokens, showWords) {
		for _, category := range showCategories {
			if containsAny(tokens, category.words) {
				return []string{category.command}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: no match", ErrInterpretationRejected)
}

func tokenize(request string) []string {
	fields := strings.Fields(strings.ToLower(request))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.Trim(f, ".,!?;:'\"`"); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// directoryName returns the token after the first "folder" or "directory"
// that has a successor, skipping one filler word.
func directoryName(tokens []string) (string, bool) {
	for i, tok := range tokens {
		if !slices.Contains(directoryWords, tok) || i+1 >= len(tokens) {
			continue
		}
		next := i + 1
		if slices.Contains(fillerWords, tokens[next]) && next+1 < len(tokens) {
			next++
		}
		return tokens[next], true
	}
	return "", false
}

func containsAny(tokens, words []string) bool {
	for _, w := range words {
		if slices.Contains(tokens, w) {
			return true
		}
	}
	return false
}
