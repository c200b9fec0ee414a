// Package registry applies git operations across the whole workspace.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erotemic/supersetup/pkg/config"
	"github.com/erotemic/supersetup/pkg/gitexec"
	"github.com/erotemic/supersetup/pkg/giturl"
	"github.com/erotemic/supersetup/pkg/repo"
)

// Operation names a per-repo action that can be applied workspace-wide.
type Operation string

const (
	OpEnsure   Operation = "ensure"
	OpCheck    Operation = "check"
	OpClone    Operation = "clone"
	OpPull     Operation = "pull"
	OpStatus   Operation = "status"
	OpVersions Operation = "versions"
	OpUpgrade  Operation = "upgrade"
	OpDevelop  Operation = "develop"
	OpDoctest  Operation = "doctest"
)

func (op Operation) run(ctx context.Context, r *repo.Repo) error {
	switch op {
	case OpEnsure:
		return r.Ensure(ctx)
	case OpCheck:
		return r.Check(ctx)
	case OpClone:
		return r.EnsureClone(ctx)
	case OpPull:
		return r.Pull(ctx)
	case OpStatus:
		return r.Status(ctx)
	case OpVersions:
		return r.Versions(ctx)
	case OpUpgrade:
		return r.Upgrade(ctx)
	case OpDevelop:
		return r.Develop(ctx)
	case OpDoctest:
		return r.Doctest(ctx)
	}
	return fmt.Errorf("unknown operation %q", op)
}

// Registry holds the workspace repos in manifest order.
type Registry struct {
	Repos []*repo.Repo
}

// Options configures registry construction.
type Options struct {
	CodeDir string
	Runner  gitexec.Runner
	Verbose bool
}

// FromManifest builds a Registry from a validated manifest.
func FromManifest(m *config.Manifest, opts Options) (*Registry, error) {
	repos := make([]*repo.Repo, 0, len(m.Repos))
	for _, spec := range m.Repos {
		devSetup := spec.DevSetup
		if devSetup == "" {
			devSetup = m.DevSetup
		}
		r, err := repo.New(repo.Options{
			Name:      spec.Name,
			CodeDir:   opts.CodeDir,
			Remote:    spec.Remote,
			Remotes:   spec.Remotes,
			RemoteURL: spec.URL,
			Branch:    spec.Branch,
			DevSetup:  devSetup,
			Verbose:   opts.Verbose,
			Runner:    opts.Runner,
		})
		if err != nil {
			return nil, err
		}
		repos = append(repos, r)
	}
	return &Registry{Repos: repos}, nil
}

// Filter restricts the registry to the named repos, keeping manifest order.
// Unknown names are an error.
func (g *Registry) Filter(only []string) error {
	if len(only) == 0 {
		return nil
	}
	byName := make(map[string]bool, len(g.Repos))
	for _, r := range g.Repos {
		byName[r.Name] = true
	}
	for _, name := range only {
		if !byName[name] {
			known := make([]string, 0, len(byName))
			for n := range byName {
				known = append(known, n)
			}
			sort.Strings(known)
			return fmt.Errorf("unknown repo %q (known: %v)", name, known)
		}
	}
	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		wanted[name] = true
	}
	filtered := g.Repos[:0]
	for _, r := range g.Repos {
		if wanted[r.Name] {
			filtered = append(filtered, r)
		}
	}
	g.Repos = filtered
	return nil
}

// SetProtocol rewrites every repo's remotes to the protocol.
func (g *Registry) SetProtocol(protocol giturl.Protocol) error {
	for _, r := range g.Repos {
		if err := r.SetProtocol(protocol); err != nil {
			return err
		}
	}
	return nil
}

// DetectProtocol infers ssh vs https from the first cloned repo whose
// configured remotes match its manifest URL. Returns "" when undecidable.
func (g *Registry) DetectProtocol(ctx context.Context) giturl.Protocol {
	for _, r := range g.Repos {
		if p := r.DetectProtocol(ctx); p != "" {
			return p
		}
	}
	return ""
}

// Result is one repo's outcome from an applied operation.
type Result struct {
	Repo     *repo.Repo
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// RunReport summarizes a whole Apply run.
type RunReport struct {
	ID       string
	Op       Operation
	Results  []Result
	Started  time.Time
	Duration time.Duration
}

// Failed reports whether any repo failed (skips do not count).
func (rep *RunReport) Failed() bool {
	for _, res := range rep.Results {
		if res.Outcome == OutcomeFailed {
			return true
		}
	}
	return false
}

// Counts returns how many repos finished with each outcome.
func (rep *RunReport) Counts() (ok, skipped, failed int) {
	for _, res := range rep.Results {
		switch res.Outcome {
		case OutcomeOK:
			ok++
		case OutcomeSkipped:
			skipped++
		case OutcomeFailed:
			failed++
		}
	}
	return ok, skipped, failed
}

// CommandScript renders every git command the run executed as a replayable
// shell script, grouped per repo in manifest order.
func (rep *RunReport) CommandScript(startDir string) string {
	var entries []gitexec.LoggedCommand
	for _, res := range rep.Results {
		entries = append(entries, res.Repo.LoggedCommands()...)
	}
	return gitexec.Script(startDir, entries)
}

// Apply runs op on every repo. workers <= 0 runs serially in manifest
// order; otherwise a bounded worker pool fans the repos out. A dirty repo
// is skipped, not failed, and one repo's failure never stops the others.
func (g *Registry) Apply(ctx context.Context, op Operation, workers int, progress Callback) *RunReport {
	if progress == nil {
		progress = NoOpProgress
	}

	rep := &RunReport{
		ID:      uuid.NewString(),
		Op:      op,
		Results: make([]Result, len(g.Repos)),
		Started: time.Now(),
	}
	progress(newEvent(StageStart, "", fmt.Sprintf("apply %s (run %s)", op, rep.ID)))

	if workers <= 0 {
		for i, r := range g.Repos {
			rep.Results[i] = g.applyOne(ctx, op, r, progress)
		}
	} else {
		// Workers would interleave immediate output; mute it and let the
		// grouped post-run display show each repo's log.
		for _, r := range g.Repos {
			r.SetVerbose(false)
		}
		var wg sync.WaitGroup
		sem := make(chan struct{}, workers)
		for i, r := range g.Repos {
			wg.Add(1)
			go func(idx int, r *repo.Repo) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				rep.Results[idx] = g.applyOne(ctx, op, r, progress)
			}(i, r)
		}
		wg.Wait()
	}

	rep.Duration = time.Since(rep.Started)
	ok, skipped, failed := rep.Counts()
	progress(newEvent(StageDone, "",
		fmt.Sprintf("finished %s: %d ok, %d skipped, %d failed", op, ok, skipped, failed)))
	return rep
}

func (g *Registry) applyOne(ctx context.Context, op Operation, r *repo.Repo, progress Callback) Result {
	progress(newEvent(StageRepo, r.Name, fmt.Sprintf("%s %s", op, r.Name)))
	start := time.Now()

	err := op.run(ctx, r)

	res := Result{Repo: r, Duration: time.Since(start)}
	done := newEvent(StageRepoDone, r.Name, "")
	switch {
	case err == nil:
		res.Outcome = OutcomeOK
		done.Message = fmt.Sprintf("%s ok", r.Name)
	case errors.Is(err, repo.ErrDirtyRepo):
		res.Outcome = OutcomeSkipped
		done.Message = fmt.Sprintf("ignoring dirty repo %s", r.Name)
	default:
		res.Outcome = OutcomeFailed
		res.Err = err
		done.Message = fmt.Sprintf("%s failed: %v", r.Name, err)
		done.Err = err
	}
	done.Outcome = res.Outcome
	progress(done)
	return res
}
