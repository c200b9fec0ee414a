package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/erotemic/supersetup/pkg/doctor"
	"github.com/erotemic/supersetup/pkg/registry"
)

const timeRounding = 10 * time.Millisecond

// PlainPrinter renders progress events linearly, for non-TTY runs and
// --plain mode.
type PlainPrinter struct {
	w io.Writer
}

// NewPlainPrinter writes plain progress to w.
func NewPlainPrinter(w io.Writer) *PlainPrinter {
	return &PlainPrinter{w: w}
}

// Callback returns a registry callback that prints each event.
func (p *PlainPrinter) Callback() registry.Callback {
	return func(e registry.Event) {
		switch e.Stage {
		case registry.StageStart, registry.StageDone:
			fmt.Fprintln(p.w, Banner(e.Message))
		case registry.StageRepo:
			fmt.Fprintln(p.w, RepoHeader(e.Repo))
		case registry.StageRepoDone:
			switch e.Outcome {
			case registry.OutcomeOK:
				fmt.Fprintln(p.w, SuccessStyle.Render(e.Message))
			case registry.OutcomeSkipped:
				fmt.Fprintln(p.w, SkipStyle.Render(e.Message))
			default:
				fmt.Fprintln(p.w, ErrorStyle.Render(e.Message))
			}
		}
	}
}

// PrintReport prints each repo's captured logs grouped in manifest order,
// then the replayable command log.
func PrintReport(w io.Writer, rep *registry.RunReport, startDir string) {
	for _, res := range rep.Results {
		logs := res.Repo.Logs()
		if logs == "" {
			continue
		}
		fmt.Fprintln(w, RepoHeader(res.Repo.Name))
		fmt.Fprintln(w, logs)
	}

	script := rep.CommandScript(startDir)
	if script != "" {
		fmt.Fprintln(w, BannerStyle.Render("LOGGED COMMANDS"))
		fmt.Fprint(w, script)
	}

	ok, skipped, failed := rep.Counts()
	fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf(
		"%d ok, %d skipped, %d failed in %s",
		ok, skipped, failed, rep.Duration.Round(timeRounding))))
}

// PrintDoctor renders check groups with status coloring.
func PrintDoctor(w io.Writer, groups []doctor.CheckGroup) {
	for _, group := range groups {
		fmt.Fprintln(w, BannerStyle.Render(group.Name))
		for _, check := range group.Checks {
			fmt.Fprintf(w, "  %s %s: %s\n",
				statusMark(check.Status), check.Name, check.Message)
			if check.Status != doctor.StatusOK && check.FixCommand != nil {
				fmt.Fprintf(w, "    %s\n",
					DimStyle.Render("fix: "+check.FixCommand.Command))
			}
		}
		fmt.Fprintln(w)
	}
}

func statusMark(s doctor.CheckStatus) string {
	switch s {
	case doctor.StatusOK:
		return SuccessStyle.Render("✓")
	case doctor.StatusWarning:
		return SkipStyle.Render("!")
	default:
		return ErrorStyle.Render("✗")
	}
}
