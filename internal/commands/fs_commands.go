package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

const globChars = "*?["

// ls

type lsCommand struct{ fs afero.Fs }

func (lsCommand) Descriptor() Descriptor {
	return Descriptor{Name: "ls", Description: "List directory contents", Usage: "ls [path|pattern]"}
}

func (c lsCommand) Run(_ context.Context, env *Env, args []string) (string, error) {
	// output is always long format, so flags such as -la are accepted and ignored
	target := "."
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			target = arg
			break
		}
	}

	if strings.ContainsAny(target, globChars) {
		return c.listPattern(env, target)
	}

	path := env.Resolve(target)
	info, err := c.fs.Stat(path)
	if err != nil {
		return "", fsError("ls", target, err)
	}
	if !info.IsDir() {
		return "", fsError("ls", target, ErrNotDirectory)
	}

	entries, err := afero.ReadDir(c.fs, path)
	if err != nil {
		return "", fsError("ls", target, err)
	}
	return formatEntries(entries), nil
}

// listPattern lists the entries of the pattern's directory whose names match
func (c lsCommand) listPattern(env *Env, pattern string) (string, error) {
	dir, base := filepath.Split(pattern)
	if !doublestar.ValidatePattern(base) {
		return "", fsError("ls", pattern, ErrNoSuchFile)
	}
	if dir == "" {
		dir = "."
	}

	entries, err := afero.ReadDir(c.fs, env.Resolve(dir))
	if err != nil {
		return "", fsError("ls", pattern, err)
	}

	var matched []os.FileInfo
	for _, e := range entries {
		if ok, _ := doublestar.Match(base, e.Name()); ok {
			matched = append(matched, e)
		}
	}
	if len(matched) == 0 {
		return "", fsError("ls", pattern, ErrNoSuchFile)
	}
	return formatEntries(matched), nil
}

func formatEntries(entries []os.FileInfo) string {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%s %8d %s", e.Mode().String(), e.Size(), e.Name())
	}
	return strings.Join(lines, "\n")
}

// cd

type cdCommand struct{ fs afero.Fs }

func (cdCommand) Descriptor() Descriptor {
	return Descriptor{Name: "cd", Description: "Change the working directory", Usage: "cd [path]"}
}

func (c cdCommand) Run(_ context.Context, env *Env, args []string) (string, error) {
	target := "~"
	if len(args) > 0 {
		target = args[0]
	}

	path := env.Resolve(target)
	info, err := c.fs.Stat(path)
	if err != nil {
		return "", fsError("cd", target, err)
	}
	if !info.IsDir() {
		return "", fsError("cd", target, ErrNotDirectory)
	}
	env.WorkingDir = path
	return "", nil
}

// pwd

type pwdCommand struct{}

func (pwdCommand) Descriptor() Descriptor {
	return Descriptor{Name: "pwd", Description: "Print the working directory", Usage: "pwd"}
}

func (pwdCommand) Run(_ context.Context, env *Env, _ []string) (string, error) {
	return env.WorkingDir, nil
}

// mkdir

type mkdirCommand struct{ fs afero.Fs }

func (mkdirCommand) Descriptor() Descriptor {
	return Descriptor{Name: "mkdir", Description: "Create directories", Usage: "mkdir <dir>..."}
}

func (c mkdirCommand) Run(_ context.Context, env *Env, args []string) (string, error) {
	if len(args) == 0 {
		return "", missingOperand()
	}
	for _, name := range args {
		path := env.Resolve(name)
		if info, err := c.fs.Stat(path); err == nil {
			if info.IsDir() {
				continue
			}
			return "", fsError("mkdir", name, ErrFileExists)
		}
		if err := c.fs.MkdirAll(path, 0755); err != nil {
			return "", fsError("mkdir", name, err)
		}
	}
	return "", nil
}

// rm

type rmCommand struct{ fs afero.Fs }

func (rmCommand) Descriptor() Descriptor {
	return Descriptor{Name: "rm", Description: "Remove files or empty directories", Usage: "rm <path>..."}
}

func (c rmCommand) Run(_ context.Context, env *Env, args []string) (string, error) {
	if len(args) == 0 {
		return "", missingOperand()
	}
	for _, name := range args {
		path := env.Resolve(name)
		info, err := c.fs.Stat(path)
		if err != nil {
			return "", fsError("rm", name, err)
		}
		if info.IsDir() {
			empty, err := afero.IsEmpty(c.fs, path)
			if err != nil {
				return "", fsError("rm", name, err)
			}
			if !empty {
				return "", fsError("rm", name, ErrDirectoryNotEmpty)
			}
		}
		if err := c.fs.Remove(path); err != nil {
			return "", fsError("rm", name, err)
		}
	}
	return "", nil
}

// cat

type catCommand struct{ fs afero.Fs }

func (catCommand) Descriptor() Descriptor {
	return Descriptor{Name: "cat", Description: "Print file contents", Usage: "cat <file>..."}
}

func (c catCommand) Run(_ context.Context, env *Env, args []string) (string, error) {
	if len(args) == 0 {
		return "", missingOperand()
	}
	var sb strings.Builder
	for _, name := range args {
		path := env.Resolve(name)
		info, err := c.fs.Stat(path)
		if err != nil {
			return "", fsError("cat", name, err)
		}
		if info.IsDir() {
			return "", fsError("cat", name, ErrIsDirectory)
		}
		data, err := afero.ReadFile(c.fs, path)
		if err != nil {
			return "", fsError("cat", name, err)
		}
		sb.Write(data)
	}
	return sb.String(), nil
}

// touch

type touchCommand struct{ fs afero.Fs }

func (touchCommand) Descriptor() Descriptor {
	return Descriptor{Name: "touch", Description: "Create empty files or update timestamps", Usage: "touch <file>..."}
}

func (c touchCommand) Run(_ context.Context, env *Env, args []string) (string, error) {
	if len(args) == 0 {
		return "", missingOperand()
	}
	now := time.Now()
	for _, name := range args {
		path := env.Resolve(name)
		info, err := c.fs.Stat(path)
		switch {
		case err == nil && info.IsDir():
			return "", fsError("touch", name, ErrIsDirectory)
		case err == nil:
			if err := c.fs.Chtimes(path, now, now); err != nil {
				return "", fsError("touch", name, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			if ok, _ := afero.DirExists(c.fs, filepath.Dir(path)); !ok {
				return "", fsError("touch", name, ErrNoSuchFile)
			}
			f, err := c.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return "", fsError("touch", name, err)
			}
			if err := f.Close(); err != nil {
				return "", fsError("touch", name, err)
			}
		default:
			return "", fsError("touch", name, err)
		}
	}
	return "", nil
}

// cp

type cpCommand struct{ fs afero.Fs }

func (cpCommand) Descriptor() Descriptor {
	return Descriptor{Name: "cp", Description: "Copy files or directories", Usage: "cp <src> <dst>"}
}

func (c cpCommand) Run(_ context.Context, env *Env, args []string) (string, error) {
	if len(args) < 2 {
		return "", missingFileOperand()
	}
	src, dst := env.Resolve(args[0]), env.Resolve(args[1])

	info, err := c.fs.Stat(src)
	if err != nil {
		return "", fsError("cp", args[0], err)
	}
	if dstInfo, err := c.fs.Stat(dst); err == nil && dstInfo.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	if dst == src || strings.HasPrefix(dst, src+string(filepath.Separator)) {
		return "", fmt.Errorf("cannot copy '%s' into itself", args[0])
	}

	if info.IsDir() {
		err = c.copyDir(src, dst)
	} else {
		err = c.copyFile(src, dst, info.Mode())
	}
	if err != nil {
		return "", classify(err)
	}
	return "", nil
}

func (c cpCommand) copyDir(src, dst string) error {
	return afero.Walk(c.fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return c.fs.MkdirAll(target, info.Mode().Perm())
		}
		return c.copyFile(path, target, info.Mode())
	})
}

func (c cpCommand) copyFile(src, dst string, mode os.FileMode) error {
	in, err := c.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := c.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// mv

type mvCommand struct{ fs afero.Fs }

func (mvCommand) Descriptor() Descriptor {
	return Descriptor{Name: "mv", Description: "Move or rename files and directories", Usage: "mv <src> <dst>"}
}

func (c mvCommand) Run(_ context.Context, env *Env, args []string) (string, error) {
	if len(args) < 2 {
		return "", missingFileOperand()
	}
	src, dst := env.Resolve(args[0]), env.Resolve(args[1])

	if _, err := c.fs.Stat(src); err != nil {
		return "", fsError("mv", args[0], err)
	}
	if dstInfo, err := c.fs.Stat(dst); err == nil && dstInfo.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	if err := c.fs.Rename(src, dst); err != nil {
		return "", classify(err)
	}
	return "", nil
}

// rmdir

type rmdirCommand struct{ fs afero.Fs }

func (rmdirCommand) Descriptor() Descriptor {
	return Descriptor{Name: "rmdir", Description: "Remove empty directories", Usage: "rmdir <dir>..."}
}

func (c rmdirCommand) Run(_ context.Context, env *Env, args []string) (string, error) {
	if len(args) == 0 {
		return "", missingOperand()
	}
	for _, name := range args {
		path := env.Resolve(name)
		info, err := c.fs.Stat(path)
		if err != nil {
			return "", fsError("rmdir", name, err)
		}
		if !info.IsDir() {
			return "", fsError("rmdir", name, ErrNotDirectory)
		}
		empty, err := afero.IsEmpty(c.fs, path)
		if err != nil {
			return "", fsError("rmdir", name, err)
		}
		if !empty {
			return "", fsError("rmdir", name, ErrDirectoryNotEmpty)
		}
		if err := c.fs.Remove(path); err != nil {
			return "", fsError("rmdir", name, err)
		}
	}
	return "", nil
}

// echo

type echoCommand struct{ fs afero.Fs }

func (echoCommand) Descriptor() Descriptor {
	return Descriptor{Name: "echo", Description: "Print text or write it to a file", Usage: "echo <text> [> file]"}
}

func (c echoCommand) Run(_ context.Context, env *Env, args []string) (string, error) {
	text := strings.Join(args, " ")
	content, target, redirect := strings.Cut(text, ">")
	if !redirect {
		return text, nil
	}

	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("syntax error near unexpected token 'newline'")
	}
	if err := afero.WriteFile(c.fs, env.Resolve(target), []byte(strings.TrimSpace(content)), 0644); err != nil {
		return "", fmt.Errorf("%s: %w", target, classify(err))
	}
	return "", nil
}
