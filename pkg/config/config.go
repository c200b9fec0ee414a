// Package config loads the supersetup workspace manifest and resolves the
// code directory.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFileName is the manifest looked for when walking up from cwd.
const ManifestFileName = "supersetup.yaml"

// ConfigDirName is the per-user config directory under XDG_CONFIG_HOME.
const ConfigDirName = "supersetup"

// RepoSpec declares one repository in the manifest.
type RepoSpec struct {
	Name     string            `yaml:"name,omitempty"`
	Remote   string            `yaml:"remote,omitempty"`  // primary remote name
	URL      string            `yaml:"url,omitempty"`     // shorthand single remote
	Remotes  map[string]string `yaml:"remotes,omitempty"` // remote name -> URL
	Branch   string            `yaml:"branch,omitempty"`
	DevSetup string            `yaml:"devSetup,omitempty"` // overrides the manifest default
}

// Manifest is the workspace declaration.
type Manifest struct {
	CodeDir  string     `yaml:"codeDir,omitempty"`
	DevSetup string     `yaml:"devSetup,omitempty"` // default dev-setup command
	Repos    []RepoSpec `yaml:"repos"`

	// Path the manifest was loaded from. Not part of the YAML.
	Path string `yaml:"-"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	m.Path = path

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks every repo spec for a determinable primary remote.
func (m *Manifest) Validate() error {
	if len(m.Repos) == 0 {
		return fmt.Errorf("no repos declared")
	}
	seen := make(map[string]bool)
	for i, spec := range m.Repos {
		label := spec.Name
		if label == "" {
			label = fmt.Sprintf("repos[%d]", i)
		}
		if spec.URL == "" && len(spec.Remotes) == 0 {
			return fmt.Errorf("%s: must specify a url or remotes", label)
		}
		if spec.URL != "" && len(spec.Remotes) > 0 {
			return fmt.Errorf("%s: url and remotes are mutually exclusive", label)
		}
		if len(spec.Remotes) > 1 && spec.Remote == "" {
			return fmt.Errorf("%s: remotes are ambiguous, set a primary remote", label)
		}
		if spec.Remote != "" && len(spec.Remotes) > 0 {
			if _, ok := spec.Remotes[spec.Remote]; !ok {
				return fmt.Errorf("%s: primary remote %q is not in remotes", label, spec.Remote)
			}
		}
		if spec.Name != "" {
			if seen[spec.Name] {
				return fmt.Errorf("%s: duplicate repo name", label)
			}
			seen[spec.Name] = true
		}
	}
	return nil
}

// Discover finds the manifest path. Order: explicit flag value, the
// SUPERSETUP_CONFIG environment variable, walking up from cwd looking for
// supersetup.yaml, then the per-user config directory.
func Discover(flagPath string) (string, error) {
	if flagPath != "" {
		if _, err := os.Stat(flagPath); err != nil {
			return "", fmt.Errorf("manifest %s does not exist", flagPath)
		}
		return flagPath, nil
	}

	if env := os.Getenv("SUPERSETUP_CONFIG"); env != "" {
		if _, err := os.Stat(env); err != nil {
			return "", fmt.Errorf("SUPERSETUP_CONFIG=%s does not exist", env)
		}
		return env, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	dir := cwd
	for {
		candidate := filepath.Join(dir, ManifestFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	userDir, err := UserConfigDir()
	if err == nil {
		candidate := filepath.Join(userDir, ManifestFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("could not find %s (searched up from %s and the user config dir)",
		ManifestFileName, cwd)
}

// UserConfigDir returns the per-user supersetup config directory.
func UserConfigDir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDirName), nil
}

// ResolveCodeDir picks the directory that holds the workspace clones.
// Order: --codedir flag, CODE_DPATH env, CODE_DIR env, the manifest's
// codeDir, ~/code. The resolved directory must exist.
func ResolveCodeDir(flagValue string, m *Manifest) (string, error) {
	candidates := []string{
		flagValue,
		os.Getenv("CODE_DPATH"),
		os.Getenv("CODE_DIR"),
	}
	if m != nil {
		candidates = append(candidates, m.CodeDir)
	}

	var dir string
	for _, c := range candidates {
		if c != "" {
			dir = c
			break
		}
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "code")
	}

	dir, err := ExpandHome(dir)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("code dir %s does not exist; create it or set --codedir/CODE_DIR", dir)
	}
	return dir, nil
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "~" {
		return os.UserHomeDir()
	}
	if len(path) > 1 && path[0] == '~' && path[1] == filepath.Separator {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
