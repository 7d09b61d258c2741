// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/inspiration-station/packager/internal/config"
	"github.com/inspiration-station/packager/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlags holds the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	dir        string
	verbose    bool
}

// loadOptions converts the flags into config load options.
func (f *rootFlags) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: f.configPath, ProjectDir: f.dir}
}

// NewRootCommand creates the packager command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}
	build := &buildFlags{}

	rootCmd := &cobra.Command{
		Use:   "packager",
		Short: "Bundle a Python GUI application into a standalone executable",
		Long: TitleStyle.Render("packager") + SubtitleStyle.Render(" - Bundle a Python GUI application into a standalone executable") + `

packager installs the dependencies listed in the project's manifest with pip,
then runs PyInstaller to produce a single double-clickable artifact for the
host platform: an .exe on Windows, an .app bundle on macOS and an ELF
executable elsewhere.

` + SubtitleStyle.Render("Examples:") + `
  packager                  Build the project in the current directory
  packager -C ../muse       Build the project in ../muse
  packager --dry-run        Show the commands a build would run
  packager clean            Remove the artifact and intermediate files
  packager config init      Create a default packager.cue`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, app, flags, build)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is ./packager.cue)")
	rootCmd.PersistentFlags().StringVarP(&flags.dir, "directory", "C", "", "project directory")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	build.register(rootCmd)

	rootCmd.AddCommand(newBuildCommand(app, flags))
	rootCmd.AddCommand(newCleanCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	rootCmd := NewRootCommand(NewApp(Dependencies{}))

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
