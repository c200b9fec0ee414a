// Package ui renders supersetup output: lipgloss styles for plain mode and
// a bubbletea model for interactive apply progress.
package ui

import "github.com/charmbracelet/lipgloss"

// Styles for CLI output
var (
	BannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255"))

	RepoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("40")).
			Bold(true)

	SkipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

// Banner formats a section banner like "--- APPLY pull ---".
func Banner(text string) string {
	return BannerStyle.Render("--- " + text + " ---")
}

// RepoHeader formats a per-repo header.
func RepoHeader(name string) string {
	return RepoStyle.Render("--- REPO = " + name + " ---")
}
