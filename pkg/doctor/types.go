// Package doctor provides environment checking for supersetup.
package doctor

// CheckStatus represents the status of an environment check.
type CheckStatus int

const (
	// StatusOK indicates the check passed.
	StatusOK CheckStatus = iota
	// StatusMissing indicates a required tool or file is absent.
	StatusMissing
	// StatusError indicates an error occurred during the check.
	StatusError
	// StatusWarning indicates the environment has issues but may work.
	StatusWarning
)

// String returns the string representation of the status.
func (s CheckStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusMissing:
		return "missing"
	case StatusError:
		return "error"
	case StatusWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Check represents a single check result.
type Check struct {
	ID          string      // Unique identifier, e.g. "git", "manifest"
	Name        string      // Display name
	Description string      // What this check verifies
	Status      CheckStatus // Current status
	Message     string      // Status message (version info, error, etc.)
	Required    bool        // Whether supersetup cannot work without it
	FixCommand  *FixCommand // How to fix if missing (nil if not fixable)
}

// FixCommand describes how to fix a failing check.
type FixCommand struct {
	Description string // Human-readable description of what the fix does
	Command     string // Shell command to run
	Platform    string // Target platform: "darwin", "linux", or "" for both
}

// CheckGroup represents a group of related checks.
type CheckGroup struct {
	ID          string
	Name        string
	Description string
	Checks      []Check
}

// HasFailures reports whether any required check in the group failed.
func (g CheckGroup) HasFailures() bool {
	for _, c := range g.Checks {
		if c.Required && c.Status != StatusOK && c.Status != StatusWarning {
			return true
		}
	}
	return false
}

// GroupID constants for check groups.
const (
	GroupGit       = "git"
	GroupSSH       = "ssh"
	GroupWorkspace = "workspace"
)

// CheckID constants for individual checks.
const (
	IDGit      = "git"
	IDSSH      = "ssh"
	IDManifest = "manifest"
	IDCodeDir  = "codedir"
)
