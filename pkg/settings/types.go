package settings

import "time"

// Version is the current settings schema version.
const Version = "1.0"

// DefaultWorkers is the worker count used when nothing is configured.
const DefaultWorkers = 8

// RecentSelection remembers a --only selection used with a manifest.
type RecentSelection struct {
	Manifest string    `json:"manifest"`
	Repos    []string  `json:"repos"`
	LastUsed time.Time `json:"last_used"`
}

// Settings holds persistent user preferences.
type Settings struct {
	Version          string            `json:"version"`
	DefaultProtocol  string            `json:"default_protocol,omitempty"` // ssh, https, or http
	DefaultWorkers   int               `json:"default_workers"`
	LastManifest     string            `json:"last_manifest,omitempty"`
	RecentSelections []RecentSelection `json:"recent_selections"`
}

// NewSettings creates settings with defaults.
func NewSettings() *Settings {
	return &Settings{
		Version:          Version,
		DefaultWorkers:   DefaultWorkers,
		RecentSelections: []RecentSelection{},
	}
}

// RememberSelection records a --only selection for a manifest, most recent
// first.
func (s *Settings) RememberSelection(manifest string, repos []string) {
	if len(repos) == 0 {
		return
	}
	entry := RecentSelection{
		Manifest: manifest,
		Repos:    repos,
		LastUsed: time.Now(),
	}
	kept := []RecentSelection{entry}
	for _, sel := range s.RecentSelections {
		if sel.Manifest == manifest && equalStrings(sel.Repos, repos) {
			continue
		}
		kept = append(kept, sel)
	}
	s.RecentSelections = kept
}

// SelectionsFor returns remembered selections for a manifest, most recent
// first.
func (s *Settings) SelectionsFor(manifest string) [][]string {
	var out [][]string
	for _, sel := range s.RecentSelections {
		if sel.Manifest == manifest {
			out = append(out, sel.Repos)
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
