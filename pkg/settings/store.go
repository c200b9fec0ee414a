// Package settings persists user preferences between runs.
package settings

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/erotemic/supersetup/pkg/config"
)

const (
	// SettingsFileName is the name of the settings file.
	SettingsFileName = "settings.json"
	// MaxRecentSelections caps the remembered --only selections.
	MaxRecentSelections = 50
)

// Store manages persistent settings storage.
type Store struct {
	configDir string
	mu        sync.RWMutex
}

// NewStore creates a settings store in the per-user config directory.
func NewStore() (*Store, error) {
	configDir, err := config.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return &Store{configDir: configDir}, nil
}

// NewStoreWithDir creates a settings store with a custom directory.
func NewStoreWithDir(dir string) *Store {
	return &Store{configDir: dir}
}

// SettingsPath returns the path to the settings file.
func (s *Store) SettingsPath() string {
	return filepath.Join(s.configDir, SettingsFileName)
}

// Load loads settings from disk. A missing file yields defaults.
func (s *Store) Load() (*Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.SettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return NewSettings(), nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	if err := migrate(&settings); err != nil {
		return nil, fmt.Errorf("failed to migrate settings: %w", err)
	}
	return &settings, nil
}

// migrate handles settings migration between schema versions.
func migrate(settings *Settings) error {
	if settings.Version != Version {
		currentMajor, _ := parseVersion(Version)
		fileMajor, _ := parseVersion(settings.Version)
		if fileMajor > currentMajor {
			log.Printf("Warning: settings file version %s is newer than supported version %s",
				settings.Version, Version)
		}
		settings.Version = Version
	}

	if settings.DefaultWorkers <= 0 {
		settings.DefaultWorkers = DefaultWorkers
	}
	if settings.RecentSelections == nil {
		settings.RecentSelections = []RecentSelection{}
	}
	return nil
}

// parseVersion extracts major and minor version numbers. Returns (0, 0) for
// invalid versions.
func parseVersion(v string) (major, minor int) {
	parts := strings.Split(v, ".")
	if len(parts) >= 1 {
		major, _ = strconv.Atoi(parts[0])
	}
	if len(parts) >= 2 {
		minor, _ = strconv.Atoi(parts[1])
	}
	return major, minor
}

// Save saves settings to disk atomically.
func (s *Store) Save(settings *Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if len(settings.RecentSelections) > MaxRecentSelections {
		settings.RecentSelections = settings.RecentSelections[:MaxRecentSelections]
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	path := s.SettingsPath()
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}
