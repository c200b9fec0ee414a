// Package gitexec runs git commands through a mockable interface.
package gitexec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner is an interface for executing git commands, allowing for testing.
type Runner interface {
	// Run executes git with the given args in dir and returns stdout/stderr.
	Run(ctx context.Context, dir string, args ...string) (stdout, stderr string, err error)
	// RunScript executes an arbitrary shell command line in dir. Used for
	// per-repo developer setup scripts.
	RunScript(ctx context.Context, dir, command string) (stdout, stderr string, err error)
	// LookPath finds the path to an executable.
	LookPath(file string) (string, error)
}

// ExitError is returned when a command exits non-zero. It carries the
// trimmed stderr so callers can match on messages like missing remote
// branches.
type ExitError struct {
	Command string
	Dir     string
	Stderr  string
	Err     error
}

// Error formats the failure with the command and its stderr.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Command)
	if e.Stderr != "" {
		return msg + ": " + e.Stderr
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap returns the underlying exec error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs the real git binary.
type ExecRunner struct {
	binaryPath string
}

// NewRunner creates a Runner backed by the installed git binary.
func NewRunner() *ExecRunner {
	return &ExecRunner{binaryPath: "git"}
}

// LookPath finds the path to an executable.
func (r *ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run executes git in dir with buffered stdout and stderr.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, r.binaryPath, args...)
	return runBuffered(cmd, "git "+strings.Join(args, " "), dir)
}

// RunScript executes a shell command line in dir.
func (r *ExecRunner) RunScript(ctx context.Context, dir, command string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	return runBuffered(cmd, command, dir)
}

func runBuffered(cmd *exec.Cmd, command, dir string) (string, string, error) {
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), stderr.String(), &ExitError{
			Command: command,
			Dir:     dir,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return stdout.String(), stderr.String(), nil
}
