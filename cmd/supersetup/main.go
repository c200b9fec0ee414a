// Package main provides the supersetup CLI for managing a workspace of git
// repositories.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set via -ldflags during build
var version = "dev"

func main() {
	rootCmd := newRootCmd()

	// Cobra handles error printing
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// rootFlags holds the persistent flag values shared by every subcommand.
type rootFlags struct {
	configPath string
	codeDir    string
	only       []string
	workers    int
	serial     bool
	protocol   string
	ssh        bool
	https      bool
	http       bool
	plain      bool
	verbose    bool
}

// newRootCmd creates the root command for supersetup.
func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "supersetup",
		Short: "Manage a workspace of git repositories",
		Long: `supersetup keeps a set of development repos cloned, on the right
branches, and tracking the right remotes.

Repos are declared once in a supersetup.yaml manifest and operations are
applied across all of them, serially or in parallel. Repos with uncommitted
changes are never touched.`,
		Version: version,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to the workspace manifest")
	pf.StringVar(&flags.codeDir, "codedir", "", "Directory that holds the workspace clones")
	pf.StringSliceVar(&flags.only, "only", nil, "Restrict to the named repos")
	pf.IntVar(&flags.workers, "workers", -1, "Parallel workers (default from settings)")
	pf.BoolVar(&flags.serial, "serial", false, "Run repos one at a time")
	pf.StringVar(&flags.protocol, "protocol", "", "Force remote protocol (ssh, https, or http)")
	pf.BoolVar(&flags.ssh, "ssh", false, "Shorthand for --protocol ssh")
	pf.BoolVar(&flags.https, "https", false, "Shorthand for --protocol https")
	pf.BoolVar(&flags.http, "http", false, "Shorthand for --protocol http")
	pf.BoolVar(&flags.plain, "plain", false, "Disable the interactive progress display")
	pf.BoolVar(&flags.verbose, "verbose", false, "Print repo output as it happens")

	rootCmd.AddCommand(
		newEnsureCmd(flags),
		newCheckCmd(flags),
		newCloneCmd(flags),
		newPullCmd(flags),
		newStatusCmd(flags),
		newVersionsCmd(flags),
		newUpgradeCmd(flags),
		newDevelopCmd(flags),
		newDoctestCmd(flags),
		newListCmd(flags),
		newDoctorCmd(flags),
	)

	return rootCmd
}
