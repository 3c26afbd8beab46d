package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
)

// Registry errors
var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrCommandExists    = errors.New("command already registered")
)

// Causes reported inside a FilesystemError. The texts mirror the shell.
var (
	ErrNoSuchFile        = errors.New("No such file or directory")
	ErrIsDirectory       = errors.New("Is a directory")
	ErrNotDirectory      = errors.New("Not a directory")
	ErrDirectoryNotEmpty = errors.New("Directory not empty")
	ErrFileExists        = errors.New("File exists")
	ErrPermissionDenied  = errors.New("Permission denied")
)

// FilesystemError reports a failed file-system action on one path
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

// subjectFormats phrase the path the way each command does
var subjectFormats = map[string]string{
	"ls":    "cannot access '%s'",
	"mkdir": "cannot create directory '%s'",
	"rm":    "cannot remove '%s'",
	"touch": "cannot touch '%s'",
	"rmdir": "failed to remove '%s'",
	"cp":    "cannot stat '%s'",
	"mv":    "cannot stat '%s'",
}

func (e *FilesystemError) Error() string {
	format, ok := subjectFormats[e.Op]
	if !ok {
		format = "%s"
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, fmt.Sprintf(format, e.Path), e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// fsError builds a FilesystemError, translating OS errors into shell causes
func fsError(op, path string, err error) *FilesystemError {
	return &FilesystemError{Op: op, Path: path, Err: classify(err)}
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrNoSuchFile), errors.Is(err, ErrIsDirectory), errors.Is(err, ErrNotDirectory),
		errors.Is(err, ErrDirectoryNotEmpty), errors.Is(err, ErrFileExists), errors.Is(err, ErrPermissionDenied):
		return err
	case errors.Is(err, fs.ErrNotExist):
		return ErrNoSuchFile
	case errors.Is(err, fs.ErrExist):
		return ErrFileExists
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	case errors.Is(err, syscall.ENOTEMPTY):
		return ErrDirectoryNotEmpty
	case errors.Is(err, syscall.ENOTDIR):
		return ErrNotDirectory
	case errors.Is(err, syscall.EISDIR):
		return ErrIsDirectory
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}

// argumentError is a usage problem such as a missing operand
type argumentError struct {
	msg string
}

func (e *argumentError) Error() string { return e.msg }

func (e *argumentError) Unwrap() error { return ErrInvalidArguments }

func missingOperand() error {
	return &argumentError{msg: "missing operand"}
}

func missingFileOperand() error {
	return &argumentError{msg: "missing file operand"}
}
