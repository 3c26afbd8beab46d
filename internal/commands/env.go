package commands

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/quocvuong92/ai-shell/internal/history"
)

// Env is the per-session execution context. Actions resolve relative paths
// against WorkingDir and never touch the process working directory.
type Env struct {
	ID         string
	WorkingDir string
	HomeDir    string
	History    *history.History
}

// NewEnv creates an execution context rooted at workingDir
func NewEnv(workingDir, homeDir string, h *history.History) *Env {
	if h == nil {
		h = history.New(0)
	}
	return &Env{
		ID:         uuid.NewString(),
		WorkingDir: filepath.Clean(workingDir),
		HomeDir:    filepath.Clean(homeDir),
		History:    h,
	}
}

// Resolve turns a user-supplied path into a clean absolute path
func (e *Env) Resolve(p string) string {
	switch {
	case p == "~":
		return e.HomeDir
	case strings.HasPrefix(p, "~/"):
		return filepath.Join(e.HomeDir, p[2:])
	case filepath.IsAbs(p):
		return filepath.Clean(p)
	default:
		return filepath.Join(e.WorkingDir, p)
	}
}
