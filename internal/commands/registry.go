// Package commands holds the command registry and the built-in actions the
// shell can dispatch to.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/afero"

	"github.com/quocvuong92/ai-shell/internal/logging"
)

// maxSuggestionDistance bounds the edit distance of "Did you mean" hints
const maxSuggestionDistance = 2

// Descriptor describes a registered command
type Descriptor struct {
	Name        string
	Description string
	Usage       string
}

// Command is one dispatchable action
type Command interface {
	Descriptor() Descriptor
	Run(ctx context.Context, env *Env, args []string) (string, error)
}

// Result is the outcome of executing one command line
type Result struct {
	Succeeded bool
	Output    string
}

// Registry maps command names to actions. It is immutable after construction
// and safe for concurrent use.
type Registry struct {
	commands map[string]Command
	order    []Descriptor
}

// NewRegistry builds a registry; names must be unique
func NewRegistry(cmds ...Command) (*Registry, error) {
	r := &Registry{commands: make(map[string]Command, len(cmds))}
	for _, cmd := range cmds {
		if cmd == nil {
			return nil, fmt.Errorf("command is nil: %w", ErrInvalidArguments)
		}
		d := cmd.Descriptor()
		if d.Name == "" {
			return nil, fmt.Errorf("command name is empty: %w", ErrInvalidArguments)
		}
		if _, exists := r.commands[d.Name]; exists {
			return nil, fmt.Errorf("%s: %w", d.Name, ErrCommandExists)
		}
		r.commands[d.Name] = cmd
		r.order = append(r.order, d)
	}
	return r, nil
}

// NewDefaultRegistry registers every built-in command
func NewDefaultRegistry(fsys afero.Fs, probe SystemProbe) (*Registry, error) {
	return NewRegistry(Builtins(fsys, probe)...)
}

// Builtins returns the file-system and system-monitoring commands
func Builtins(fsys afero.Fs, probe SystemProbe) []Command {
	if probe == nil {
		probe = HostProbe{}
	}
	return []Command{
		lsCommand{fs: fsys},
		cdCommand{fs: fsys},
		pwdCommand{},
		mkdirCommand{fs: fsys},
		rmCommand{fs: fsys},
		catCommand{fs: fsys},
		touchCommand{fs: fsys},
		cpCommand{fs: fsys},
		mvCommand{fs: fsys},
		rmdirCommand{fs: fsys},
		echoCommand{fs: fsys},
		cpuCommand{probe: probe},
		memCommand{probe: probe},
		psCommand{probe: probe},
		diskCommand{probe: probe},
	}
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.commands[name]
	return ok
}

// Descriptors returns descriptors in registration order
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Names returns command names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	for i, d := range r.order {
		names[i] = d.Name
	}
	return names
}

// Suggest returns the closest registered name within a small edit distance
func (r *Registry) Suggest(name string) (string, bool) {
	best, bestDist := "", maxSuggestionDistance+1
	for _, d := range r.order {
		if dist := levenshtein.ComputeDistance(name, d.Name); dist < bestDist {
			best, bestDist = d.Name, dist
		}
	}
	return best, best != ""
}

// Execute runs name against env. Failures never escape as panics: they are
// reported through a failed Result and the returned error.
func (r *Registry) Execute(ctx context.Context, name string, args []string, env *Env) (res Result, err error) {
	cmd, ok := r.commands[name]
	if !ok {
		msg := fmt.Sprintf("Command '%s' not found. Type 'help' for available commands.", name)
		if suggestion, found := r.Suggest(name); found {
			msg += fmt.Sprintf(" Did you mean '%s'?", suggestion)
		}
		return Result{Succeeded: false, Output: msg}, fmt.Errorf("%s: %w", name, ErrUnknownCommand)
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: panic: %v", name, p)
			res = Result{Succeeded: false, Output: fmt.Sprintf("%s: %v", name, p)}
			logging.Error("command panicked", err, logging.Fields{"command": name})
		}
	}()

	output, err := cmd.Run(ctx, env, args)
	if err != nil {
		return Result{Succeeded: false, Output: failureMessage(name, err)}, err
	}
	return Result{Succeeded: true, Output: output}, nil
}

func failureMessage(name string, err error) string {
	var fsErr *FilesystemError
	if errors.As(err, &fsErr) {
		return fsErr.Error()
	}
	return fmt.Sprintf("%s: %v", name, err)
}
