// Package history provides line history persistence for interactive sessions.
package history

// HistoryManager defines the interface for managing line history.
// This interface enables dependency injection and easier testing.
type HistoryManager interface {
	// Load reads the history from disk
	Load() error

	// Save writes the most recent entries to disk
	Save() error

	// Add appends one processed input line
	Add(line string)

	// Entries returns the history, oldest first
	Entries() []string

	// Len returns the number of entries
	Len() int

	// Clear removes all entries
	Clear()
}

// Ensure concrete type implements the interface
var _ HistoryManager = (*History)(nil)
