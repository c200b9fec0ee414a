package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/erotemic/supersetup/pkg/config"
	"github.com/erotemic/supersetup/pkg/doctor"
	"github.com/erotemic/supersetup/pkg/giturl"
	"github.com/erotemic/supersetup/pkg/registry"
	"github.com/erotemic/supersetup/pkg/settings"
	"github.com/erotemic/supersetup/pkg/ui"
)

// workspace bundles everything a subcommand needs after setup.
type workspace struct {
	manifest *config.Manifest
	registry *registry.Registry
	settings *settings.Settings
	store    *settings.Store
	codeDir  string
}

// loadWorkspace discovers the manifest, resolves the code directory, and
// builds the registry with flags, settings, and auto-detection applied.
func loadWorkspace(ctx context.Context, flags *rootFlags) (*workspace, error) {
	store, err := settings.NewStore()
	if err != nil {
		return nil, err
	}
	userSettings, err := store.Load()
	if err != nil {
		// A broken settings file should not block git operations.
		fmt.Fprintf(os.Stderr, "warning: %v; using default settings\n", err)
		userSettings = settings.NewSettings()
	}

	manifestPath, err := config.Discover(flags.configPath)
	if err != nil {
		return nil, err
	}
	manifest, err := config.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	codeDir, err := config.ResolveCodeDir(flags.codeDir, manifest)
	if err != nil {
		return nil, err
	}

	reg, err := registry.FromManifest(manifest, registry.Options{
		CodeDir: codeDir,
		Verbose: flags.verbose,
	})
	if err != nil {
		return nil, err
	}

	if err := reg.Filter(flags.only); err != nil {
		return nil, err
	}

	protocol, err := chooseProtocol(ctx, flags, userSettings, reg)
	if err != nil {
		return nil, err
	}
	if protocol != "" {
		if err := reg.SetProtocol(protocol); err != nil {
			return nil, err
		}
	}

	return &workspace{
		manifest: manifest,
		registry: reg,
		settings: userSettings,
		store:    store,
		codeDir:  codeDir,
	}, nil
}

// chooseProtocol picks the remote protocol: explicit flags, then the saved
// default, then detection from an already-cloned repo's remotes.
func chooseProtocol(ctx context.Context, flags *rootFlags, s *settings.Settings,
	reg *registry.Registry) (giturl.Protocol, error) {
	name := flags.protocol
	switch {
	case flags.ssh:
		name = "ssh"
	case flags.https:
		name = "https"
	case flags.http:
		name = "http"
	}
	if name != "" {
		return giturl.ParseProtocol(name)
	}
	if s.DefaultProtocol != "" {
		return giturl.ParseProtocol(s.DefaultProtocol)
	}
	if p := reg.DetectProtocol(ctx); p != "" {
		return p, nil
	}
	return "", nil
}

func (ws *workspace) workerCount(flags *rootFlags) int {
	if flags.serial {
		return 0
	}
	if flags.workers >= 0 {
		return flags.workers
	}
	return ws.settings.DefaultWorkers
}

// saveSettings persists what this run learned. Failures are warnings.
func (ws *workspace) saveSettings(flags *rootFlags) {
	ws.settings.LastManifest = ws.manifest.Path
	ws.settings.RememberSelection(ws.manifest.Path, flags.only)
	if err := ws.store.Save(ws.settings); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save settings: %v\n", err)
	}
}

// runApply executes op across the workspace with the flag-derived worker
// count.
func runApply(cmd *cobra.Command, flags *rootFlags, op registry.Operation) error {
	ws, err := loadWorkspace(cmd.Context(), flags)
	if err != nil {
		return err
	}
	return applyAndReport(cmd, flags, ws, op, ws.workerCount(flags))
}

// runApplySerial executes op one repo at a time regardless of worker flags.
func runApplySerial(cmd *cobra.Command, flags *rootFlags, op registry.Operation) error {
	ws, err := loadWorkspace(cmd.Context(), flags)
	if err != nil {
		return err
	}
	return applyAndReport(cmd, flags, ws, op, 0)
}

func applyAndReport(cmd *cobra.Command, flags *rootFlags, ws *workspace,
	op registry.Operation, workers int) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var rep *registry.RunReport
	if interactive(flags) {
		names := make([]string, len(ws.registry.Repos))
		for i, r := range ws.registry.Repos {
			names[i] = r.Name
		}
		model := ui.NewApplyModel(op, names, func(cb registry.Callback) *registry.RunReport {
			return ws.registry.Apply(ctx, op, workers, cb)
		}, cancel)

		var err error
		rep, err = ui.RunInteractive(model)
		if err != nil {
			return err
		}
		if rep == nil {
			return fmt.Errorf("%s cancelled", op)
		}
	} else {
		printer := ui.NewPlainPrinter(cmd.OutOrStdout())
		rep = ws.registry.Apply(ctx, op, workers, printer.Callback())
	}

	startDir, err := os.Getwd()
	if err != nil {
		startDir = ws.codeDir
	}
	ui.PrintReport(cmd.OutOrStdout(), rep, startDir)

	ws.saveSettings(flags)

	if rep.Failed() {
		_, _, failed := rep.Counts()
		return fmt.Errorf("%s failed for %d repo(s)", op, failed)
	}
	return nil
}

// interactive reports whether the animated progress display should be used.
func interactive(flags *rootFlags) bool {
	if flags.plain || flags.verbose {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// runList prints the manifest's repos.
func runList(cmd *cobra.Command, flags *rootFlags) error {
	ws, err := loadWorkspace(cmd.Context(), flags)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d repos in %s:\n\n", len(ws.registry.Repos), ws.manifest.Path)
	for _, r := range ws.registry.Repos {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-16s branch=%-12s %s\n", r.Name, r.Branch, r.URL)
	}
	return nil
}

// runDoctor checks the environment. Manifest and code dir problems are
// reported by the checks themselves, not treated as setup failures.
func runDoctor(cmd *cobra.Command, flags *rootFlags) error {
	checker := doctor.NewChecker()

	if manifestPath, err := config.Discover(flags.configPath); err == nil {
		checker.SetManifestPath(manifestPath)
		if manifest, err := config.Load(manifestPath); err == nil {
			if codeDir, err := config.ResolveCodeDir(flags.codeDir, manifest); err == nil {
				checker.SetCodeDir(codeDir)
			}
		}
	}

	groups := checker.CheckAll()
	ui.PrintDoctor(cmd.OutOrStdout(), groups)

	if doctor.HasFailures(groups) {
		return fmt.Errorf("environment is not ready; fix the failing checks above")
	}
	return nil
}
