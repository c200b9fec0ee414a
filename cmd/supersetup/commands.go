package main

import (
	"github.com/spf13/cobra"

	"github.com/erotemic/supersetup/pkg/registry"
)

// newEnsureCmd creates the ensure subcommand (main command)
func newEnsureCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Clone, branch, and track every repo as the manifest declares",
		Long: `Converge every repo in the workspace: clone it if missing, register the
manifest's remotes, correct remote URLs, check out the declared branch or
tag, and set upstream tracking.

Ensure is the live run of "check". Repos with uncommitted changes are
skipped, never modified.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd, flags, registry.OpEnsure)
		},
	}
}

// newCheckCmd creates the check subcommand
func newCheckCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report what ensure would change, without changing anything",
		Long:  `Check is a dry run of "ensure": it reports every action that would be taken.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd, flags, registry.OpCheck)
		},
	}
}

// newCloneCmd creates the clone subcommand
func newCloneCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clone",
		Short: "Clone any repos that are missing from the code directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd, flags, registry.OpClone)
		},
	}
}

// newPullCmd creates the pull subcommand
func newPullCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Pull every clean repo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd, flags, registry.OpPull)
		},
	}
}

// newStatusCmd creates the status subcommand
func newStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show git status for every repo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd, flags, registry.OpStatus)
		},
	}
}

// newVersionsCmd creates the versions subcommand
func newVersionsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "Print package version, tag, branch, and sha for every repo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Serial so the aligned lines print in manifest order.
			return runApplySerial(cmd, flags, registry.OpVersions)
		},
	}
}

// newUpgradeCmd creates the upgrade subcommand
func newUpgradeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Switch every repo to its highest dev/X.Y.Z branch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd, flags, registry.OpUpgrade)
		},
	}
}

// newDevelopCmd creates the develop subcommand
func newDevelopCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "develop",
		Short: "Run each repo's developer setup command",
		Long: `Run the dev-setup command declared in the manifest (per repo, or the
workspace default) inside each repo. Always runs serially.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApplySerial(cmd, flags, registry.OpDevelop)
		},
	}
}

// newDoctestCmd creates the doctest subcommand
func newDoctestCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctest",
		Short: "Run each repo's run_doctests.sh script",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd, flags, registry.OpDoctest)
		},
	}
}

// newListCmd creates the list subcommand
func newListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the repos the manifest declares",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, flags)
		},
	}
}

// newDoctorCmd creates the doctor subcommand
func newDoctorCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that git, the manifest, and the code directory are usable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, flags)
		},
	}
}
