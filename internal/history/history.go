package history

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/quocvuong92/ai-shell/internal/constants"
)

// History is a bounded list of input lines, optionally backed by a file
type History struct {
	mu       sync.Mutex
	entries  []string
	capacity int
	fs       afero.Fs
	path     string
}

// New creates an in-memory history. A non-positive capacity uses the default.
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = constants.HistoryCapacity
	}
	return &History{capacity: capacity}
}

// NewPersistent creates a history stored at path on fsys
func NewPersistent(fsys afero.Fs, path string, capacity int) *History {
	h := New(capacity)
	h.fs = fsys
	h.path = path
	return h
}

// Path returns the backing file, or "" for an in-memory history
func (h *History) Path() string {
	return h.path
}

// Load reads the history file. A missing file is not an error.
func (h *History) Load() error {
	if h.fs == nil {
		return nil
	}

	data, err := afero.ReadFile(h.fs, h.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read history file: %w", err)
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to parse history file: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = lines
	h.trim()
	return nil
}

// Save rewrites the history file with the most recent entries
func (h *History) Save() error {
	if h.fs == nil {
		return nil
	}

	h.mu.Lock()
	var buf bytes.Buffer
	for _, line := range h.entries {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	h.mu.Unlock()

	if dir := filepath.Dir(h.path); dir != "" {
		if err := h.fs.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	if err := afero.WriteFile(h.fs, h.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

// Add appends one line. Blank lines are ignored.
func (h *History) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, line)
	h.trim()
}

// Entries returns a copy of the history, oldest first
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear removes all entries
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}

// trim drops the oldest entries beyond capacity. Callers must hold mu.
func (h *History) trim() {
	if over := len(h.entries) - h.capacity; over > 0 {
		h.entries = append([]string(nil), h.entries[over:]...)
	}
}
