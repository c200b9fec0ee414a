package doctor

import (
	"bytes"
	"os"
	"os/exec"
	"regexp"

	"github.com/erotemic/supersetup/pkg/config"
)

// CommandExecutor is an interface for executing commands, allowing for
// testing.
type CommandExecutor interface {
	LookPath(file string) (string, error)
	Run(name string, args ...string) (string, error)
	FileExists(path string) bool
	DirWritable(path string) bool
}

// RealExecutor is the default command executor that uses the real system.
type RealExecutor struct{}

// LookPath finds the path to an executable.
func (e *RealExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run executes a command and returns its output.
func (e *RealExecutor) Run(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	// Some tools print version info to stderr.
	output := stdout.String()
	if output == "" {
		output = stderr.String()
	}
	return output, err
}

// FileExists checks if a file exists.
func (e *RealExecutor) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DirWritable checks if a directory exists and is writable.
func (e *RealExecutor) DirWritable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	probe, err := os.CreateTemp(path, ".supersetup-doctor-*")
	if err != nil {
		return false
	}
	probe.Close()
	os.Remove(probe.Name())
	return true
}

var versionRe = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)

// CheckGit verifies the git binary is installed and extracts its version.
func CheckGit(exec CommandExecutor) Check {
	check := Check{
		ID:          IDGit,
		Name:        "Git",
		Description: "Version control; every supersetup operation shells out to it",
		Required:    true,
		FixCommand: &FixCommand{
			Description: "Install git",
			Command:     "sudo apt install git",
			Platform:    "linux",
		},
	}

	path, err := exec.LookPath("git")
	if err != nil {
		check.Status = StatusMissing
		check.Message = "not installed"
		return check
	}

	output, err := exec.Run(path, "--version")
	if err != nil {
		check.Status = StatusOK
		check.Message = "installed (version unknown)"
		return check
	}

	check.Status = StatusOK
	if m := versionRe.FindString(output); m != "" {
		check.Message = m
	} else {
		check.Message = "installed"
	}
	return check
}

// CheckSSH verifies an ssh client is available for ssh remotes.
func CheckSSH(exec CommandExecutor) Check {
	check := Check{
		ID:          IDSSH,
		Name:        "SSH client",
		Description: "Needed for ssh remote URLs",
		FixCommand: &FixCommand{
			Description: "Install the OpenSSH client",
			Command:     "sudo apt install openssh-client",
			Platform:    "linux",
		},
	}

	if _, err := exec.LookPath("ssh"); err != nil {
		check.Status = StatusWarning
		check.Message = "not installed; ssh remotes will not work"
		return check
	}
	check.Status = StatusOK
	check.Message = "installed"
	return check
}

// CheckManifest verifies the workspace manifest is present and parseable.
func CheckManifest(exec CommandExecutor, path string) Check {
	check := Check{
		ID:          IDManifest,
		Name:        "Manifest",
		Description: "The workspace declaration (" + config.ManifestFileName + ")",
		Required:    true,
	}

	if path == "" || !exec.FileExists(path) {
		check.Status = StatusMissing
		check.Message = "no manifest found"
		return check
	}

	if _, err := config.Load(path); err != nil {
		check.Status = StatusError
		check.Message = err.Error()
		return check
	}

	check.Status = StatusOK
	check.Message = path
	return check
}

// CheckCodeDir verifies the code directory exists and is writable.
func CheckCodeDir(exec CommandExecutor, path string) Check {
	check := Check{
		ID:          IDCodeDir,
		Name:        "Code directory",
		Description: "Where workspace repos are cloned",
		Required:    true,
	}

	if path == "" {
		check.Status = StatusMissing
		check.Message = "not resolved"
		return check
	}
	if !exec.DirWritable(path) {
		check.Status = StatusError
		check.Message = path + " is missing or not writable"
		check.FixCommand = &FixCommand{
			Description: "Create the code directory",
			Command:     "mkdir -p " + path,
		}
		return check
	}

	check.Status = StatusOK
	check.Message = path
	return check
}
