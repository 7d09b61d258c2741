// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/inspiration-station/packager/internal/issue"
	"github.com/inspiration-station/packager/internal/pipeline"
	"github.com/inspiration-station/packager/internal/runner"
	"github.com/inspiration-station/packager/pkg/types"
)

// buildFlags holds the flags of the build command.
type buildFlags struct {
	dryRun bool
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "print the commands a build would run without running them")
}

func newBuildCommand(app *App, flags *rootFlags) *cobra.Command {
	build := &buildFlags{}
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Install dependencies and bundle the application",
		Long: `Install the manifest's dependencies, then bundle the entry point into a
standalone artifact in the output directory.

A failed build leaves the artifact of the previous successful build in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, app, flags, build)
		},
	}
	build.register(buildCmd)
	return buildCmd
}

func runBuild(cmd *cobra.Command, app *App, flags *rootFlags, build *buildFlags) error {
	ctx := cmd.Context()

	cfg, err := app.Config.Load(ctx, flags.loadOptions())
	if err != nil {
		return app.fail(cmd, configLoadError(err, flags.verbose), "dark", types.ExitFailure)
	}

	verbose := flags.verbose || cfg.UI.Verbose
	style := glamourStyle(cfg.UI.ColorScheme)
	p := app.newPipeline(cfg, verbose)

	if build.dryRun {
		plan, planErr := p.Plan()
		if planErr != nil {
			return app.fail(cmd, buildError(planErr, verbose), style, types.ExitFailure)
		}
		printPlan(app.stdout, plan)
		return nil
	}

	report, err := p.Run(ctx)
	if err != nil {
		return app.fail(cmd, buildError(err, verbose), style, exitCodeOf(err))
	}
	printReport(app.stdout, report, verbose)
	return nil
}

func buildError(err error, verbose bool) *ServiceError {
	issueID, msg := classifyBuildError(err, verbose)
	return newServiceError(err, issueID, msg)
}

func configLoadError(err error, verbose bool) *ServiceError {
	msg := fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
	return newServiceError(err, issue.ConfigLoadFailedId, msg)
}

// exitCodeOf returns the exit code of the failed child process, or 1.
func exitCodeOf(err error) types.ExitCode {
	var pErr *pipeline.Error
	if errors.As(err, &pErr) {
		return pErr.ExitCode().ForProcess()
	}
	return types.ExitFailure
}

// fail renders svcErr and returns it as an ExitError so that RunE does not
// print it a second time.
func (a *App) fail(cmd *cobra.Command, svcErr *ServiceError, style string, code types.ExitCode) error {
	renderServiceError(a.stderr, svcErr, style)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: code, Err: svcErr}
}

func printPlan(w io.Writer, plan *pipeline.BuildPlan) {
	fmt.Fprintln(w, TitleStyle.Render("Build plan"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s  %s\n", CmdStyle.Render("Python:  "), plan.Python)
	fmt.Fprintf(w, "%s  %s %s\n", CmdStyle.Render("Manifest:"), plan.Manifest.Path,
		SubtitleStyle.Render(fmt.Sprintf("(%d requirements)", len(plan.Manifest.Requirements))))
	fmt.Fprintf(w, "%s  %s %s\n", CmdStyle.Render("Artifact:"), plan.Artifact,
		SubtitleStyle.Render("("+plan.Format.Kind()+")"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, SubtitleStyle.Render("Steps:"))
	for i, step := range plan.Steps {
		fmt.Fprintf(w, "  %d. %s\n", i+1, runner.CommandLine(step))
	}
}

func printReport(w io.Writer, report *pipeline.Report, verbose bool) {
	a := report.Artifact
	fmt.Fprintf(w, "%s Built %s %s in %s\n",
		SuccessStyle.Render("✓"), a.Name, SubtitleStyle.Render("("+a.Format.Kind()+")"),
		report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  %s %s\n", CmdStyle.Render("Path:"), a.Path)
	fmt.Fprintf(w, "  %s %s\n", CmdStyle.Render("Size:"), humanize.Bytes(uint64(a.Size)))
	if verbose {
		fmt.Fprintf(w, "  %s %s\n", VerboseStyle.Render("sha256:"), a.Digest)
		fmt.Fprintf(w, "  %s %s\n", VerboseStyle.Render("python:"), report.Python)
		fmt.Fprintf(w, "  %s %v\n", VerboseStyle.Render("stages:"), report.Stages)
	}
}
