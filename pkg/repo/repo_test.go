package repo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erotemic/supersetup/pkg/gitexec"
	"github.com/erotemic/supersetup/pkg/giturl"
)

// MockRunner is a mock git runner for testing.
type MockRunner struct {
	Calls      [][]string
	Scripts    []string
	RunFunc    func(dir string, args ...string) (string, string, error)
	ScriptFunc func(dir, command string) (string, string, error)
}

func (m *MockRunner) Run(_ context.Context, dir string, args ...string) (string, string, error) {
	m.Calls = append(m.Calls, args)
	if m.RunFunc != nil {
		return m.RunFunc(dir, args...)
	}
	return "", "", nil
}

func (m *MockRunner) RunScript(_ context.Context, dir, command string) (string, string, error) {
	m.Scripts = append(m.Scripts, command)
	if m.ScriptFunc != nil {
		return m.ScriptFunc(dir, command)
	}
	return "", "", nil
}

func (m *MockRunner) LookPath(file string) (string, error) {
	return "/usr/bin/" + file, nil
}

// CalledWith reports whether any recorded call starts with the given args.
func (m *MockRunner) CalledWith(prefix ...string) bool {
	for _, call := range m.Calls {
		if len(call) < len(prefix) {
			continue
		}
		match := true
		for i, p := range prefix {
			if call[i] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func newTestRepo(t *testing.T, mock *MockRunner, opts Options) *Repo {
	t.Helper()
	if opts.Runner == nil {
		opts.Runner = mock
	}
	r, err := New(opts)
	require.NoError(t, err)
	return r
}

func TestNew_DefaultsFromRemoteURL(t *testing.T) {
	r, err := New(Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		CodeDir:   "/tmp/code",
		Runner:    &MockRunner{},
	})
	require.NoError(t, err)

	assert.Equal(t, "ubelt", r.Name)
	assert.Equal(t, "origin", r.Remote)
	assert.Equal(t, filepath.Join("/tmp/code", "ubelt"), r.Dir)
	assert.Equal(t, filepath.Join("/tmp/code", "ubelt", "ubelt"), r.PkgDir)
	assert.Equal(t, "main", r.Branch)
	assert.Equal(t, "https://github.com/Erotemic/ubelt.git", r.URL)
}

func TestNew_PrimaryFromSingleRemote(t *testing.T) {
	r, err := New(Options{
		Remotes: map[string]string{"github": "https://github.com/Erotemic/ubelt.git"},
		CodeDir: "/tmp/code",
		Runner:  &MockRunner{},
	})
	require.NoError(t, err)

	assert.Equal(t, "github", r.Remote)
}

func TestNew_AmbiguousRemotes(t *testing.T) {
	_, err := New(Options{
		Remotes: map[string]string{
			"github": "https://github.com/Erotemic/ubelt.git",
			"mirror": "https://gitlab.com/Erotemic/ubelt.git",
		},
		CodeDir: "/tmp/code",
		Runner:  &MockRunner{},
	})
	assert.ErrorContains(t, err, "ambiguous")
}

func TestNew_NoRemote(t *testing.T) {
	_, err := New(Options{Name: "ubelt", CodeDir: "/tmp/code", Runner: &MockRunner{}})
	assert.ErrorContains(t, err, "must specify some remote")
}

func TestSetProtocol(t *testing.T) {
	r := newTestRepo(t, &MockRunner{}, Options{
		Remote: "github",
		Remotes: map[string]string{
			"github": "https://github.com/Erotemic/ubelt.git",
			"mirror": "git@gitlab.com:Erotemic/ubelt.git",
		},
		CodeDir: "/tmp/code",
	})

	require.NoError(t, r.SetProtocol(giturl.ProtocolSSH))

	assert.Equal(t, "git@github.com:Erotemic/ubelt.git", r.URL)
	assert.Equal(t, "git@github.com:Erotemic/ubelt.git", r.Remotes["github"])
	assert.Equal(t, "git@gitlab.com:Erotemic/ubelt.git", r.Remotes["mirror"])
}

func TestClone_RefusesExistingDir(t *testing.T) {
	dir := t.TempDir()
	r := newTestRepo(t, &MockRunner{}, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		Dir:       dir,
		CodeDir:   filepath.Dir(dir),
	})

	err := r.Clone(context.Background())
	assert.ErrorContains(t, err, "existing directory")
}

func TestClone_BuildsCommand(t *testing.T) {
	mock := &MockRunner{}
	codeDir := t.TempDir()
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		CodeDir:   codeDir,
		Branch:    "dev/1.0.0",
	})

	require.NoError(t, r.Clone(context.Background()))

	require.Len(t, mock.Calls, 1)
	assert.Equal(t, []string{
		"clone", "--recursive", "-b", "dev/1.0.0",
		"https://github.com/Erotemic/ubelt.git", filepath.Join(codeDir, "ubelt"),
	}, mock.Calls[0])
}

func TestClone_MissingRemoteBranch(t *testing.T) {
	mock := &MockRunner{
		RunFunc: func(dir string, args ...string) (string, string, error) {
			return "", "", &gitexec.ExitError{
				Command: "git clone",
				Stderr:  "fatal: Remote branch dev/9.9.9 not found in upstream origin",
				Err:     errors.New("exit status 128"),
			}
		},
	}
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		CodeDir:   t.TempDir(),
		Branch:    "dev/9.9.9",
	})

	err := r.Clone(context.Background())
	assert.ErrorContains(t, err, `branch "dev/9.9.9" does not exist`)
}

func TestEnsureClone_SkipsExisting(t *testing.T) {
	mock := &MockRunner{}
	dir := t.TempDir()
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		Dir:       dir,
		CodeDir:   filepath.Dir(dir),
	})

	require.NoError(t, r.EnsureClone(context.Background()))

	assert.Empty(t, mock.Calls)
	assert.Contains(t, r.Logs(), "No need to clone")
}

func TestPull_DirtyRepo(t *testing.T) {
	mock := &MockRunner{
		RunFunc: func(dir string, args ...string) (string, string, error) {
			if args[0] == "status" {
				return " M repo.py\n", "", nil
			}
			return "", "", nil
		},
	}
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		Dir:       t.TempDir(),
		CodeDir:   "/tmp/code",
	})

	err := r.Pull(context.Background())
	assert.ErrorIs(t, err, ErrDirtyRepo)
	assert.False(t, mock.CalledWith("pull"))
}

func TestPull_Clean(t *testing.T) {
	mock := &MockRunner{}
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		Dir:       t.TempDir(),
		CodeDir:   "/tmp/code",
	})

	require.NoError(t, r.Pull(context.Background()))
	assert.True(t, mock.CalledWith("pull"))
}

func TestCheck_MissingRepoOnlyReports(t *testing.T) {
	mock := &MockRunner{}
	codeDir := t.TempDir()
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		CodeDir:   codeDir,
	})

	require.NoError(t, r.Check(context.Background()))

	assert.Empty(t, mock.Calls)
	assert.Contains(t, r.Logs(), "NEED TO CLONE")
}

func TestEnsure_ConvergedRepoMakesNoChanges(t *testing.T) {
	url := "https://github.com/Erotemic/ubelt.git"
	mock := &MockRunner{
		RunFunc: func(dir string, args ...string) (string, string, error) {
			switch args[0] {
			case "status":
				return "", "", nil
			case "remote":
				if len(args) == 1 {
					return "origin\n", "", nil
				}
				return url + "\n", "", nil // remote get-url
			case "for-each-ref":
				return "origin/main\norigin/HEAD\n", "", nil
			case "rev-parse":
				if contains(args, "@{upstream}") {
					return "origin/main\n", "", nil
				}
				return "main\n", "", nil
			case "tag":
				return "", "", nil
			}
			return "", "", nil
		},
	}
	r := newTestRepo(t, mock, Options{
		RemoteURL: url,
		Dir:       t.TempDir(),
		CodeDir:   "/tmp/code",
	})

	require.NoError(t, r.Ensure(context.Background()))

	// Mutating commands go through the logged path; a converged repo needs none.
	assert.Empty(t, r.LoggedCommands())
}

func TestEnsure_CorrectsRemoteURL(t *testing.T) {
	manifestURL := "git@github.com:Erotemic/ubelt.git"
	mock := &MockRunner{
		RunFunc: func(dir string, args ...string) (string, string, error) {
			switch args[0] {
			case "remote":
				if len(args) == 1 {
					return "origin\n", "", nil
				}
				if args[1] == "get-url" {
					return "https://github.com/Erotemic/ubelt.git\n", "", nil
				}
				return "", "", nil
			case "for-each-ref":
				return "origin/main\n", "", nil
			case "rev-parse":
				if contains(args, "@{upstream}") {
					return "origin/main\n", "", nil
				}
				return "main\n", "", nil
			}
			return "", "", nil
		},
	}
	r := newTestRepo(t, mock, Options{
		RemoteURL: manifestURL,
		Dir:       t.TempDir(),
		CodeDir:   "/tmp/code",
	})

	require.NoError(t, r.Ensure(context.Background()))

	assert.True(t, mock.CalledWith("remote", "set-url", "origin", manifestURL))
}

func TestEnsure_AddsMissingRemote(t *testing.T) {
	mock := &MockRunner{
		RunFunc: func(dir string, args ...string) (string, string, error) {
			switch args[0] {
			case "remote":
				if len(args) == 1 {
					return "origin\n", "", nil
				}
				if args[1] == "get-url" {
					return "https://github.com/Erotemic/ubelt.git\n", "", nil
				}
				return "", "", nil
			case "for-each-ref":
				return "origin/main\n", "", nil
			case "rev-parse":
				if contains(args, "@{upstream}") {
					return "origin/main\n", "", nil
				}
				return "main\n", "", nil
			}
			return "", "", nil
		},
	}
	r := newTestRepo(t, mock, Options{
		Remote: "origin",
		Remotes: map[string]string{
			"origin": "https://github.com/Erotemic/ubelt.git",
			"mirror": "https://gitlab.com/Erotemic/ubelt.git",
		},
		Dir:     t.TempDir(),
		CodeDir: "/tmp/code",
	})

	require.NoError(t, r.Ensure(context.Background()))

	assert.True(t, mock.CalledWith("remote", "add", "mirror", "https://gitlab.com/Erotemic/ubelt.git"))
}

func TestEnsure_ChecksOutWantedBranch(t *testing.T) {
	mock := &MockRunner{
		RunFunc: func(dir string, args ...string) (string, string, error) {
			switch args[0] {
			case "remote":
				if len(args) == 1 {
					return "origin\n", "", nil
				}
				if args[1] == "get-url" {
					return "https://github.com/Erotemic/ubelt.git\n", "", nil
				}
				return "", "", nil
			case "for-each-ref":
				return "origin/main\norigin/dev/1.0.0\n", "", nil
			case "rev-parse":
				if contains(args, "@{upstream}") {
					return "origin/dev/1.0.0\n", "", nil
				}
				return "main\n", "", nil
			}
			return "", "", nil
		},
	}
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		Dir:       t.TempDir(),
		CodeDir:   "/tmp/code",
		Branch:    "dev/1.0.0",
	})

	require.NoError(t, r.Ensure(context.Background()))

	assert.True(t, mock.CalledWith("checkout", "dev/1.0.0"))
}

func TestEnsure_DetachedHeadOnWantedTag(t *testing.T) {
	sha := "abc123def456"
	mock := &MockRunner{
		RunFunc: func(dir string, args ...string) (string, string, error) {
			switch args[0] {
			case "remote":
				if len(args) == 1 {
					return "origin\n", "", nil
				}
				if args[1] == "get-url" {
					return "https://github.com/Erotemic/ubelt.git\n", "", nil
				}
				return "", "", nil
			case "for-each-ref":
				return "origin/main\n", "", nil
			case "rev-parse":
				if contains(args, "--abbrev-ref") {
					return "HEAD\n", "", nil // detached
				}
				return sha + "\n", "", nil
			case "tag":
				if args[1] == "--list" {
					return "v1.0.0\n", "", nil
				}
				return "v1.0.0\n", "", nil
			}
			return "", "", nil
		},
	}
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		Dir:       t.TempDir(),
		CodeDir:   "/tmp/code",
		Branch:    "v1.0.0",
	})

	require.NoError(t, r.Ensure(context.Background()))
	assert.False(t, mock.CalledWith("checkout"))
}

func TestVersions_FormatsAlignedLine(t *testing.T) {
	dir := t.TempDir()
	pkgDir := filepath.Join(dir, "ubelt")
	require.NoError(t, os.MkdirAll(pkgDir, 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(pkgDir, "__init__.py"),
		[]byte("__version__ = '1.3.7'\n"), 0644))

	mock := &MockRunner{
		RunFunc: func(d string, args ...string) (string, string, error) {
			switch args[0] {
			case "describe":
				return "v1.3.7-2-gabc123\n", "", nil
			case "rev-parse":
				if contains(args, "--abbrev-ref") {
					return "main\n", "", nil
				}
				return "abc123\n", "", nil
			}
			return "", "", nil
		},
	}
	r := newTestRepo(t, mock, Options{
		Name:      "ubelt",
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		Dir:       dir,
		CodeDir:   "/tmp/code",
	})

	require.NoError(t, r.Versions(context.Background()))

	logs := r.Logs()
	assert.Contains(t, logs, "repo=ubelt,")
	assert.Contains(t, logs, "pkg=1.3.7,")
	assert.Contains(t, logs, "tag=v1.3.7-2-gabc123,")
	assert.Contains(t, logs, "sha1=abc123")
}

func TestUpgrade_SwitchesToHighestDevBranch(t *testing.T) {
	mock := &MockRunner{
		RunFunc: func(dir string, args ...string) (string, string, error) {
			switch args[0] {
			case "for-each-ref":
				return strings.Join([]string{
					"origin/main",
					"origin/dev/0.9.0",
					"origin/dev/0.10.1",
					"origin/dev/0.2.5",
					"origin/dev/junk",
				}, "\n") + "\n", "", nil
			case "rev-parse":
				return "main\n", "", nil
			}
			return "", "", nil
		},
	}
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		Dir:       t.TempDir(),
		CodeDir:   "/tmp/code",
	})

	require.NoError(t, r.Upgrade(context.Background()))

	assert.True(t, mock.CalledWith("fetch", "origin"))
	assert.True(t, mock.CalledWith("checkout", "dev/0.10.1"))
}

func TestUpgrade_AlreadyLatest(t *testing.T) {
	mock := &MockRunner{
		RunFunc: func(dir string, args ...string) (string, string, error) {
			switch args[0] {
			case "for-each-ref":
				return "origin/dev/0.10.1\n", "", nil
			case "rev-parse":
				return "dev/0.10.1\n", "", nil
			}
			return "", "", nil
		},
	}
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		Dir:       t.TempDir(),
		CodeDir:   "/tmp/code",
	})

	require.NoError(t, r.Upgrade(context.Background()))
	assert.False(t, mock.CalledWith("checkout"))
}

func TestUpgrade_NoDevBranches(t *testing.T) {
	mock := &MockRunner{
		RunFunc: func(dir string, args ...string) (string, string, error) {
			if args[0] == "for-each-ref" {
				return "origin/main\n", "", nil
			}
			return "", "", nil
		},
	}
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		Dir:       t.TempDir(),
		CodeDir:   "/tmp/code",
	})

	err := r.Upgrade(context.Background())
	assert.ErrorContains(t, err, "no dev/X.Y.Z branches")
}

func TestDevelop_RunsConfiguredCommand(t *testing.T) {
	mock := &MockRunner{}
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		Dir:       t.TempDir(),
		CodeDir:   "/tmp/code",
		DevSetup:  "./run_developer_setup.sh",
	})

	require.NoError(t, r.Develop(context.Background()))

	require.Len(t, mock.Scripts, 1)
	assert.Equal(t, "./run_developer_setup.sh", mock.Scripts[0])
}

func TestDevelop_NoCommandIsSkip(t *testing.T) {
	mock := &MockRunner{}
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		Dir:       t.TempDir(),
		CodeDir:   "/tmp/code",
	})

	require.NoError(t, r.Develop(context.Background()))
	assert.Empty(t, mock.Scripts)
	assert.Contains(t, r.Logs(), "skipping")
}

func TestDevelop_FallsBackToSetupScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "run_developer_setup.sh"), []byte("#!/bin/sh\n"), 0755))
	mock := &MockRunner{}
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		Dir:       dir,
		CodeDir:   "/tmp/code",
	})

	require.NoError(t, r.Develop(context.Background()))

	require.Len(t, mock.Scripts, 1)
	assert.Equal(t, "./run_developer_setup.sh", mock.Scripts[0])
}

func TestDoctest_RunsScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "run_doctests.sh"), []byte("#!/bin/sh\n"), 0755))
	mock := &MockRunner{}
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		Dir:       dir,
		CodeDir:   "/tmp/code",
	})

	require.NoError(t, r.Doctest(context.Background()))

	require.Len(t, mock.Scripts, 1)
	assert.Equal(t, "./run_doctests.sh", mock.Scripts[0])
}

func TestDoctest_MissingScriptIsError(t *testing.T) {
	mock := &MockRunner{}
	r := newTestRepo(t, mock, Options{
		RemoteURL: "https://github.com/Erotemic/ubelt.git",
		Dir:       t.TempDir(),
		CodeDir:   "/tmp/code",
	})

	err := r.Doctest(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run_doctests.sh")
	assert.Empty(t, mock.Scripts)
}

func TestLatestDevBranch(t *testing.T) {
	assert.Equal(t, "dev/0.10.1", latestDevBranch([]string{
		"main", "dev/0.9.0", "dev/0.10.1", "dev/0.2.5", "dev/nonsense",
	}))
	assert.Equal(t, "", latestDevBranch([]string{"main", "feature/x"}))
	assert.Equal(t, "dev/1.0.0.1", latestDevBranch([]string{"dev/1.0.0", "dev/1.0.0.1"}))
}
