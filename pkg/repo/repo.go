// Package repo manipulates a single git repository: cloning, converging it
// onto the right branch and remotes, and reporting its state.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/erotemic/supersetup/pkg/gitexec"
	"github.com/erotemic/supersetup/pkg/giturl"
)

// ErrDirtyRepo is returned when a mutating operation finds uncommitted
// changes. Automated scripts can easily break a repo in an unexpected state,
// so we refuse to touch it.
var ErrDirtyRepo = errors.New("dirty worktree")

// DefaultBranch is assumed when the manifest does not name one.
const DefaultBranch = "main"

// Options configures a Repo.
type Options struct {
	Name      string            // defaults from the remote URL
	Dir       string            // defaults to CodeDir/Name
	CodeDir   string            // parent directory for clones
	Remote    string            // primary remote name
	Remotes   map[string]string // remote name -> URL
	RemoteURL string            // shorthand: single remote, named "origin"
	Branch    string            // branch (or tag) to converge on
	DevSetup  string            // command run by Develop
	Verbose   bool
	Runner    gitexec.Runner
}

// Repo references a git repository and is able to manipulate it.
type Repo struct {
	Name     string
	Dir      string
	CodeDir  string
	Remote   string
	Remotes  map[string]string
	Branch   string
	URL      string
	PkgDir   string
	DevSetup string

	runner  gitexec.Runner
	verbose bool
	log     gitexec.Log
	lines   []string
}

// New validates options and builds a Repo. Exactly one primary remote must
// be determinable.
func New(opts Options) (*Repo, error) {
	r := &Repo{
		Name:     opts.Name,
		Dir:      opts.Dir,
		CodeDir:  opts.CodeDir,
		Remote:   opts.Remote,
		Remotes:  opts.Remotes,
		Branch:   opts.Branch,
		DevSetup: opts.DevSetup,
		runner:   opts.Runner,
		verbose:  opts.Verbose,
	}
	if r.Branch == "" {
		r.Branch = DefaultBranch
	}
	if r.runner == nil {
		r.runner = gitexec.NewRunner()
	}

	if opts.RemoteURL != "" {
		if r.Remotes != nil {
			return nil, fmt.Errorf("repo %q: remote URL and remotes map are mutually exclusive", r.Name)
		}
		if r.Remote == "" {
			r.Remote = "origin"
		}
		r.Remotes = map[string]string{r.Remote: opts.RemoteURL}
	}

	if r.Remote == "" {
		switch len(r.Remotes) {
		case 0:
			return nil, fmt.Errorf("repo %q: must specify some remote", r.Name)
		case 1:
			for name := range r.Remotes {
				r.Remote = name
			}
		default:
			return nil, fmt.Errorf("repo %q: remotes are ambiguous, specify a primary", r.Name)
		}
	}

	url, ok := r.Remotes[r.Remote]
	if !ok {
		return nil, fmt.Errorf("repo %q: primary remote %q has no URL", r.Name, r.Remote)
	}
	r.URL = url

	if r.Name == "" {
		r.Name = giturl.RepoName(r.URL)
	}
	if r.Dir == "" {
		if r.CodeDir == "" {
			return nil, fmt.Errorf("repo %q: need a directory or a code dir", r.Name)
		}
		r.Dir = filepath.Join(r.CodeDir, r.Name)
	}
	r.PkgDir = filepath.Join(r.Dir, r.Name)

	return r, nil
}

// String identifies the repo in messages.
func (r *Repo) String() string {
	return fmt.Sprintf("%s, branch=%s", r.Name, r.Branch)
}

// SetVerbose toggles immediate printing of log lines. Captured output is
// retained either way for grouped display after parallel runs.
func (r *Repo) SetVerbose(v bool) {
	r.verbose = v
}

// Verbose reports whether log lines print as they happen.
func (r *Repo) Verbose() bool {
	return r.verbose
}

// Logs returns everything the repo reported during its operations.
func (r *Repo) Logs() string {
	return strings.Join(r.lines, "\n")
}

// LoggedCommands returns the git commands executed so far.
func (r *Repo) LoggedCommands() []gitexec.LoggedCommand {
	return r.log.Entries()
}

// SetProtocol rewrites the primary URL and every remote to the protocol.
func (r *Repo) SetProtocol(protocol giturl.Protocol) error {
	url, err := giturl.New(r.URL).Format(protocol)
	if err != nil {
		return fmt.Errorf("repo %q: %w", r.Name, err)
	}
	r.URL = url
	for name, remote := range r.Remotes {
		rewritten, err := giturl.New(remote).Format(protocol)
		if err != nil {
			return fmt.Errorf("repo %q remote %q: %w", r.Name, name, err)
		}
		r.Remotes[name] = rewritten
	}
	return nil
}

func (r *Repo) logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	r.lines = append(r.lines, line)
	if r.verbose {
		fmt.Println(line)
	}
}

// run executes git in the repo directory, recording the command and its
// output.
func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	return r.runIn(ctx, r.Dir, args...)
}

func (r *Repo) runIn(ctx context.Context, dir string, args ...string) (string, error) {
	r.log.Append(dir, args...)
	stdout, stderr, err := r.runner.Run(ctx, dir, args...)
	if out := strings.TrimSpace(stdout); out != "" {
		r.logf("%s", out)
	}
	if errOut := strings.TrimSpace(stderr); errOut != "" && err == nil {
		r.logf("%s", errOut)
	}
	return stdout, err
}

// query executes git without echoing its output into the repo log. Used for
// introspection commands whose output is consumed, not shown.
func (r *Repo) query(ctx context.Context, args ...string) (string, error) {
	stdout, _, err := r.runner.Run(ctx, r.Dir, args...)
	return strings.TrimSpace(stdout), err
}

// DetectProtocol inspects the repo's configured git remotes for one whose
// path matches the manifest URL and reports whether it uses ssh or https.
// Returns "" when nothing matches or the repo is not cloned yet.
func (r *Repo) DetectProtocol(ctx context.Context) giturl.Protocol {
	if !r.Exists() {
		return ""
	}
	local, err := r.localRemotes(ctx)
	if err != nil {
		return ""
	}
	for _, url := range local {
		if !giturl.SamePath(url, r.URL) {
			continue
		}
		parts, err := giturl.New(url).Parts()
		if err != nil {
			continue
		}
		if parts.Syntax == giturl.SyntaxSSH {
			return giturl.ProtocolSSH
		}
		return giturl.ProtocolHTTPS
	}
	return ""
}

// Exists reports whether the repo directory is present on disk.
func (r *Repo) Exists() bool {
	_, err := os.Stat(r.Dir)
	return err == nil
}

// IsDirty reports whether the worktree has uncommitted changes.
func (r *Repo) IsDirty(ctx context.Context) (bool, error) {
	out, err := r.query(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

func (r *Repo) assertClean(ctx context.Context) error {
	dirty, err := r.IsDirty(ctx)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("repo %s: %w", r.Name, ErrDirtyRepo)
	}
	return nil
}

// localRemotes returns the repo's configured remotes as name -> URL.
func (r *Repo) localRemotes(ctx context.Context) (map[string]string, error) {
	out, err := r.query(ctx, "remote")
	if err != nil {
		return nil, err
	}
	remotes := make(map[string]string)
	for _, name := range strings.Fields(out) {
		url, err := r.query(ctx, "remote", "get-url", name)
		if err != nil {
			return nil, err
		}
		remotes[name] = url
	}
	return remotes, nil
}

// remoteBranches lists branch names known for the given remote, without the
// remote prefix.
func (r *Repo) remoteBranches(ctx context.Context, remote string) ([]string, error) {
	out, err := r.query(ctx, "for-each-ref",
		"--format=%(refname:short)", "refs/remotes/"+remote)
	if err != nil {
		return nil, err
	}
	var branches []string
	prefix := remote + "/"
	for _, ref := range strings.Fields(out) {
		name := strings.TrimPrefix(ref, prefix)
		if name == "HEAD" {
			continue
		}
		branches = append(branches, name)
	}
	return branches, nil
}

// activeBranch returns the checked-out branch name, or "" when detached.
func (r *Repo) activeBranch(ctx context.Context) (string, error) {
	out, err := r.query(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if out == "HEAD" {
		return "", nil
	}
	return out, nil
}

// trackingBranch returns the upstream of the current branch as
// "remote/branch", or "" when none is configured.
func (r *Repo) trackingBranch(ctx context.Context) (string, error) {
	out, err := r.query(ctx, "rev-parse", "--abbrev-ref",
		"--symbolic-full-name", "@{upstream}")
	if err != nil {
		// No upstream configured is the common failure here.
		var exitErr *gitexec.ExitError
		if errors.As(err, &exitErr) {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

// headSHA returns the commit hash of HEAD.
func (r *Repo) headSHA(ctx context.Context) (string, error) {
	return r.query(ctx, "rev-parse", "HEAD")
}

// tagCommit resolves a tag name to its commit hash. Returns "" when the tag
// does not exist.
func (r *Repo) tagCommit(ctx context.Context, tag string) (string, error) {
	listed, err := r.query(ctx, "tag", "--list", tag)
	if err != nil || listed == "" {
		return "", err
	}
	return r.query(ctx, "rev-parse", tag+"^{commit}")
}

// headTags returns tags pointing at HEAD.
func (r *Repo) headTags(ctx context.Context) ([]string, error) {
	out, err := r.query(ctx, "tag", "--points-at", "HEAD")
	if err != nil {
		return nil, err
	}
	return strings.Fields(out), nil
}
