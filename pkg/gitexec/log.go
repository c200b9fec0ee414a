package gitexec

import (
	"os"
	"path/filepath"
	"strings"
)

// LoggedCommand records a single executed command and where it ran.
type LoggedCommand struct {
	Command string // shell-ready command line, e.g. "git pull"
	Dir     string
}

// Log accumulates executed commands for post-run replay.
type Log struct {
	entries []LoggedCommand
}

// Append records a git command.
func (l *Log) Append(dir string, args ...string) {
	l.AppendRaw(dir, "git "+strings.Join(args, " "))
}

// AppendRaw records an arbitrary command line.
func (l *Log) AppendRaw(dir, command string) {
	l.entries = append(l.entries, LoggedCommand{Command: command, Dir: dir})
}

// Entries returns the recorded commands in execution order.
func (l *Log) Entries() []LoggedCommand {
	return l.entries
}

// Script renders the log as a replayable shell script. A cd line is emitted
// only when the working directory changes, and the home directory is
// shortened to ~. startDir is where the script notionally begins; the script
// ends by returning there.
func Script(startDir string, entries []LoggedCommand) string {
	var b strings.Builder
	cwd := startDir
	for _, e := range entries {
		dir := e.Dir
		if dir == "" {
			dir = startDir
		}
		if dir != cwd {
			b.WriteString("cd " + ShrinkHome(dir) + "\n")
			cwd = dir
		}
		b.WriteString(e.Command + "\n")
	}
	if cwd != startDir {
		b.WriteString("cd " + ShrinkHome(startDir) + "\n")
	}
	return b.String()
}

// ShrinkHome replaces the user's home directory prefix with ~.
func ShrinkHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if rel, err := filepath.Rel(home, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.Join("~", rel)
	}
	return path
}
