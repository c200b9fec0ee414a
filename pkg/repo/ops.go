package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/erotemic/supersetup/pkg/gitexec"
)

// Clone clones the repo into its directory. The directory must not exist.
func (r *Repo) Clone(ctx context.Context) error {
	if r.Exists() {
		return fmt.Errorf("repo %s: cannot clone into existing directory %s", r.Name, r.Dir)
	}

	args := []string{"clone", "--recursive"}
	if r.Branch != "" {
		args = append(args, "-b", r.Branch)
	}
	args = append(args, r.URL, r.Dir)

	if _, err := r.runIn(ctx, r.CodeDir, args...); err != nil {
		var exitErr *gitexec.ExitError
		if errors.As(err, &exitErr) &&
			strings.Contains(exitErr.Stderr, "Remote branch") &&
			strings.Contains(exitErr.Stderr, "not found") {
			return fmt.Errorf("repo %s: branch %q does not exist on %s: %w",
				r.Name, r.Branch, r.URL, err)
		}
		return fmt.Errorf("repo %s: clone failed: %w", r.Name, err)
	}
	return nil
}

// EnsureClone clones the repo only when its directory is missing.
func (r *Repo) EnsureClone(ctx context.Context) error {
	if r.Exists() {
		r.logf("No need to clone existing repo %s", r.Name)
		return nil
	}
	r.logf("Cloning missing repo %s from %s", r.Name, r.URL)
	return r.Clone(ctx)
}

// Check is a dry run of Ensure: it reports what Ensure would do without
// mutating anything.
func (r *Repo) Check(ctx context.Context) error {
	return r.ensure(ctx, true)
}

// Ensure converges the repo: cloned, clean, remotes registered with the
// right URLs, the wanted branch (or tag) checked out, and upstream tracking
// configured.
func (r *Repo) Ensure(ctx context.Context) error {
	return r.ensure(ctx, false)
}

func (r *Repo) ensure(ctx context.Context, dry bool) error {
	if dry {
		r.logf("Checking %s", r)
	} else {
		r.logf("Ensuring %s", r)
	}

	if !r.Exists() {
		r.logf("NEED TO CLONE %s from %s", r.Name, r.URL)
		if dry {
			return nil
		}
		if err := r.Clone(ctx); err != nil {
			return err
		}
	}

	if err := r.assertClean(ctx); err != nil {
		return err
	}

	if err := r.ensureRemotes(ctx, dry); err != nil {
		return err
	}

	if err := r.ensureBranch(ctx, dry); err != nil {
		return err
	}

	// Status footer: current branch, tracking ref, tags at HEAD.
	if branch, err := r.activeBranch(ctx); err == nil && branch != "" {
		tracking, _ := r.trackingBranch(ctx)
		r.logf(" * branch = %s -> %s", branch, tracking)
	}
	if tags, err := r.headTags(ctx); err == nil && len(tags) > 0 {
		r.logf(" * head tags = %s", strings.Join(tags, ", "))
	}
	return nil
}

// ensureRemotes registers manifest remotes that are missing from the repo
// and corrects a primary remote whose URL disagrees with the manifest.
func (r *Repo) ensureRemotes(ctx context.Context, dry bool) error {
	local, err := r.localRemotes(ctx)
	if err != nil {
		return fmt.Errorf("repo %s: listing remotes: %w", r.Name, err)
	}

	// Stable order so dry-run output is deterministic.
	names := make([]string, 0, len(r.Remotes))
	for name := range r.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		wantURL := r.Remotes[name]
		haveURL, exists := local[name]
		switch {
		case !exists:
			r.logf("NEED TO ADD REMOTE %s -> %s", name, wantURL)
			if dry {
				continue
			}
			if _, err := r.run(ctx, "remote", "add", name, wantURL); err != nil {
				if name == r.Remote {
					// Only the primary remote is required.
					return fmt.Errorf("repo %s: adding remote %s: %w", r.Name, name, err)
				}
				r.logf("WARNING: could not add remote %s: %v", name, err)
			}
		case name == r.Remote && haveURL != r.URL:
			r.logf("WARNING: remote %s URL is %s, want %s", name, haveURL, r.URL)
			if dry {
				r.logf("Dry run, not updating remote URL")
			} else {
				r.logf("Updating remote URL")
				if _, err := r.run(ctx, "remote", "set-url", name, r.URL); err != nil {
					return fmt.Errorf("repo %s: setting remote URL: %w", r.Name, err)
				}
			}
		case haveURL != wantURL:
			r.logf("WARNING: remote %s URL is %s, manifest says %s", name, haveURL, wantURL)
		}
	}
	return nil
}

// ensureBranch checks out the wanted branch (or verifies the wanted tag) and
// configures upstream tracking.
func (r *Repo) ensureBranch(ctx context.Context, dry bool) error {
	branches, err := r.remoteBranches(ctx, r.Remote)
	if err != nil {
		return fmt.Errorf("repo %s: listing remote branches: %w", r.Name, err)
	}

	branchKnown := contains(branches, r.Branch)
	if !branchKnown {
		if dry {
			r.logf("Branch %s not known locally for remote %s; ensure would fetch", r.Branch, r.Remote)
		} else {
			r.logf("Branch %s not known locally for remote %s; fetching", r.Branch, r.Remote)
			if _, err := r.run(ctx, "fetch", r.Remote); err != nil {
				return fmt.Errorf("repo %s: fetch: %w", r.Name, err)
			}
			branches, err = r.remoteBranches(ctx, r.Remote)
			if err != nil {
				return fmt.Errorf("repo %s: listing remote branches: %w", r.Name, err)
			}
			branchKnown = contains(branches, r.Branch)
		}
	}

	active, err := r.activeBranch(ctx)
	if err != nil {
		return fmt.Errorf("repo %s: resolving HEAD: %w", r.Name, err)
	}

	refIsTag := false
	onCorrectRef := active == r.Branch
	if active == "" {
		// Detached HEAD: Branch may name a tag.
		tagSHA, err := r.tagCommit(ctx, r.Branch)
		if err != nil {
			return fmt.Errorf("repo %s: resolving tag %s: %w", r.Name, r.Branch, err)
		}
		if tagSHA == "" {
			return fmt.Errorf("repo %s: detached HEAD and %q is not a tag", r.Name, r.Branch)
		}
		refIsTag = true
		head, err := r.headSHA(ctx)
		if err != nil {
			return fmt.Errorf("repo %s: resolving HEAD: %w", r.Name, err)
		}
		onCorrectRef = head == tagSHA
	}

	if !onCorrectRef {
		r.logf("NEED TO SET BRANCH TO %s for %s", r.Branch, r.Name)
		if dry {
			r.logf("Dry run, not setting branch")
		} else if err := r.checkoutWithRetry(ctx); err != nil {
			return err
		}
	}

	if refIsTag {
		return nil
	}

	tracking, err := r.trackingBranch(ctx)
	if err != nil {
		return fmt.Errorf("repo %s: resolving upstream: %w", r.Name, err)
	}
	wantTracking := r.Remote + "/" + r.Branch
	if tracking == wantTracking {
		return nil
	}

	r.logf("NEED TO SET UPSTREAM TO %s for %s", wantTracking, r.Name)
	if dry {
		r.logf("Dry run, not setting upstream")
		return nil
	}
	if !branchKnown {
		if _, err := r.run(ctx, "fetch", r.Remote); err != nil {
			return fmt.Errorf("repo %s: fetch: %w", r.Name, err)
		}
		branches, err = r.remoteBranches(ctx, r.Remote)
		if err != nil {
			return fmt.Errorf("repo %s: listing remote branches: %w", r.Name, err)
		}
		if !contains(branches, r.Branch) {
			return fmt.Errorf("repo %s: branch %s does not exist on remote %s", r.Name, r.Branch, r.Remote)
		}
	}
	if _, err := r.run(ctx, "branch",
		"--set-upstream-to="+wantTracking, r.Branch); err != nil {
		return fmt.Errorf("repo %s: setting upstream: %w", r.Name, err)
	}
	return nil
}

// checkoutWithRetry checks out the wanted branch, falling back to creating a
// local branch off the remote when the plain checkout is ambiguous or the
// branch only exists remotely.
func (r *Repo) checkoutWithRetry(ctx context.Context) error {
	if _, err := r.run(ctx, "checkout", r.Branch); err == nil {
		return nil
	}
	r.logf("Checkout failed; trying to branch off %s/%s", r.Remote, r.Branch)
	if _, err := r.run(ctx, "fetch", r.Remote); err != nil {
		return fmt.Errorf("repo %s: fetch: %w", r.Name, err)
	}
	if _, err := r.run(ctx, "checkout", "-b", r.Branch,
		r.Remote+"/"+r.Branch); err != nil {
		return fmt.Errorf("repo %s: does branch %s exist on remote %s? %w",
			r.Name, r.Branch, r.Remote, err)
	}
	return nil
}

// Pull refuses a dirty worktree and then pulls.
func (r *Repo) Pull(ctx context.Context) error {
	if err := r.assertClean(ctx); err != nil {
		return err
	}
	if _, err := r.run(ctx, "pull"); err != nil {
		return fmt.Errorf("repo %s: pull: %w", r.Name, err)
	}
	return nil
}

// Status runs git status and captures its output.
func (r *Repo) Status(ctx context.Context) error {
	if _, err := r.run(ctx, "status"); err != nil {
		return fmt.Errorf("repo %s: status: %w", r.Name, err)
	}
	return nil
}

// Versions logs a single aligned line with the package version, the nearest
// tag, the active branch, and the HEAD sha.
func (r *Repo) Versions(ctx context.Context) error {
	pkgVersion, err := PackageVersion(r.PkgDir)
	if err != nil {
		pkgVersion = "<None>"
	}

	tag, err := r.query(ctx, "describe", "--tags")
	if err != nil {
		tag = "<None>"
	}

	branch, err := r.activeBranch(ctx)
	if err != nil {
		return fmt.Errorf("repo %s: resolving branch: %w", r.Name, err)
	}
	if branch == "" {
		branch = "<detached>"
	}

	sha, err := r.headSHA(ctx)
	if err != nil {
		return fmt.Errorf("repo %s: resolving HEAD: %w", r.Name, err)
	}

	r.logf("repo=%-14s pkg=%-12s tag=%-18s branch=%-10s sha1=%s",
		r.Name+",", pkgVersion+",", tag+",", branch+",", sha)
	return nil
}

// Upgrade fetches and switches to the highest-versioned dev/X.Y.Z branch on
// the primary remote.
func (r *Repo) Upgrade(ctx context.Context) error {
	if _, err := r.run(ctx, "fetch", r.Remote); err != nil {
		return fmt.Errorf("repo %s: fetch: %w", r.Name, err)
	}
	r.logf("Fetch was successful")

	branches, err := r.remoteBranches(ctx, r.Remote)
	if err != nil {
		return fmt.Errorf("repo %s: listing remote branches: %w", r.Name, err)
	}

	latest := latestDevBranch(branches)
	if latest == "" {
		return fmt.Errorf("repo %s: no dev/X.Y.Z branches on remote %s", r.Name, r.Remote)
	}

	active, err := r.activeBranch(ctx)
	if err != nil {
		return fmt.Errorf("repo %s: resolving branch: %w", r.Name, err)
	}
	if active == latest {
		r.logf("Already on the latest dev branch %s", latest)
		return nil
	}

	r.Branch = latest
	return r.checkoutWithRetry(ctx)
}

// Develop runs the repo's developer setup command in the repo directory.
// When the manifest declares none, a run_developer_setup.sh script in the
// repo is used if present.
func (r *Repo) Develop(ctx context.Context) error {
	command := r.DevSetup
	if command == "" {
		script := filepath.Join(r.Dir, "run_developer_setup.sh")
		if _, err := os.Stat(script); err == nil {
			command = "./run_developer_setup.sh"
		}
	}
	if command == "" {
		r.logf("No dev setup command for %s; skipping", r.Name)
		return nil
	}
	if err := r.runScript(ctx, command); err != nil {
		return fmt.Errorf("repo %s: dev setup: %w", r.Name, err)
	}
	return nil
}

// Doctest runs the repo's run_doctests.sh script. Unlike Develop there is no
// manifest override; the script is expected to exist.
func (r *Repo) Doctest(ctx context.Context) error {
	script := filepath.Join(r.Dir, "run_doctests.sh")
	if _, err := os.Stat(script); err != nil {
		return fmt.Errorf("repo %s: no run_doctests.sh script in %s", r.Name, r.Dir)
	}
	if err := r.runScript(ctx, "./run_doctests.sh"); err != nil {
		return fmt.Errorf("repo %s: doctests: %w", r.Name, err)
	}
	return nil
}

// runScript executes a shell command in the repo dir, recording it and
// capturing its output.
func (r *Repo) runScript(ctx context.Context, command string) error {
	r.log.AppendRaw(r.Dir, command)
	stdout, stderr, err := r.runner.RunScript(ctx, r.Dir, command)
	if out := strings.TrimSpace(stdout); out != "" {
		r.logf("%s", out)
	}
	if errOut := strings.TrimSpace(stderr); errOut != "" {
		r.logf("%s", errOut)
	}
	return err
}

// latestDevBranch picks the dev/X.Y.Z branch with the highest version tuple.
// Returns "" when none parse.
func latestDevBranch(branches []string) string {
	best := ""
	var bestVer []int
	for _, b := range branches {
		name, ok := strings.CutPrefix(b, "dev/")
		if !ok {
			continue
		}
		ver, err := parseVersionTuple(name)
		if err != nil {
			continue
		}
		if best == "" || lessVersion(bestVer, ver) {
			best = b
			bestVer = ver
		}
	}
	return best
}

func parseVersionTuple(s string) ([]int, error) {
	parts := strings.Split(s, ".")
	ver := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		ver = append(ver, n)
	}
	return ver, nil
}

func lessVersion(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
