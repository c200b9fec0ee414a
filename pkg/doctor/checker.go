package doctor

import "sync"

// Checker runs environment checks.
type Checker struct {
	executor     CommandExecutor
	manifestPath string
	codeDir      string
}

// NewChecker creates a Checker with the real command executor.
func NewChecker() *Checker {
	return &Checker{executor: &RealExecutor{}}
}

// NewCheckerWithExecutor creates a Checker with a custom executor (for
// testing).
func NewCheckerWithExecutor(exec CommandExecutor) *Checker {
	return &Checker{executor: exec}
}

// SetManifestPath sets the manifest to verify. Empty means none was found.
func (c *Checker) SetManifestPath(path string) {
	c.manifestPath = path
}

// SetCodeDir sets the resolved code directory to verify.
func (c *Checker) SetCodeDir(path string) {
	c.codeDir = path
}

// CheckAll runs all groups concurrently.
func (c *Checker) CheckAll() []CheckGroup {
	groups := []string{GroupGit, GroupSSH, GroupWorkspace}
	result := make([]CheckGroup, len(groups))

	var wg sync.WaitGroup
	for i, id := range groups {
		wg.Add(1)
		go func(idx int, groupID string) {
			defer wg.Done()
			result[idx] = c.CheckGroup(groupID)
		}(i, id)
	}
	wg.Wait()
	return result
}

// CheckGroup runs all checks for a specific group.
func (c *Checker) CheckGroup(groupID string) CheckGroup {
	switch groupID {
	case GroupGit:
		return CheckGroup{
			ID:          GroupGit,
			Name:        "Git tooling",
			Description: "The git binary supersetup drives",
			Checks: []Check{
				CheckGit(c.executor),
			},
		}
	case GroupSSH:
		return CheckGroup{
			ID:          GroupSSH,
			Name:        "SSH",
			Description: "Needed for ssh remote URLs",
			Checks: []Check{
				CheckSSH(c.executor),
			},
		}
	case GroupWorkspace:
		return CheckGroup{
			ID:          GroupWorkspace,
			Name:        "Workspace",
			Description: "Manifest and code directory",
			Checks: []Check{
				CheckManifest(c.executor, c.manifestPath),
				CheckCodeDir(c.executor, c.codeDir),
			},
		}
	}
	return CheckGroup{ID: groupID, Name: "Unknown"}
}

// HasFailures reports whether any group has a failing required check.
func HasFailures(groups []CheckGroup) bool {
	for _, g := range groups {
		if g.HasFailures() {
			return true
		}
	}
	return false
}
