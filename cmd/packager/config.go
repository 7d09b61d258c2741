// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inspiration-station/packager/internal/config"
	"github.com/inspiration-station/packager/pkg/types"
)

// newConfigCommand creates the `packager config` command tree.
func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage packager configuration",
		Long: `Manage packager configuration.

Configuration is read from packager.cue in the project directory, or from the
file given with --config. Every key can be overridden with a PACKAGER_*
environment variable, e.g. PACKAGER_PYTHON or PACKAGER_BUNDLER_ONE_FILE.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := showConfig(cmd.Context(), app, flags); err != nil {
				return app.fail(cmd, configLoadError(err, flags.verbose), "dark", types.ExitFailure)
			}
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default packager.cue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := config.FilePath(flags.loadOptions())
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, exists := config.FilePath(flags.loadOptions())
			if exists {
				fmt.Fprintln(app.stdout, path)
			} else {
				fmt.Fprintf(app.stdout, "%s %s\n", path, SubtitleStyle.Render("(not found, using defaults)"))
			}
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, flags *rootFlags) error {
	opts := flags.loadOptions()
	cfg, err := app.Config.Load(ctx, opts)
	if err != nil {
		return err
	}

	w := app.stdout
	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if path, exists := config.FilePath(opts); exists {
		fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	showValue(w, "project_dir", cfg.ProjectDir)
	showValue(w, "entry_point", cfg.EntryPoint)
	showValue(w, "artifact_name", cfg.ArtifactName)
	showValue(w, "dist_dir", cfg.DistDir)
	showValue(w, "work_dir", cfg.WorkDir)
	showValue(w, "manifest", cfg.Manifest)
	if cfg.Python == "" {
		fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render("python"), SubtitleStyle.Render("(auto)"))
	} else {
		showValue(w, "python", cfg.Python)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", CmdStyle.Render("bundler"))
	showValue(w, "  package", cfg.Bundler.Package)
	showValue(w, "  module", cfg.Bundler.Module)
	showValue(w, "  no_confirm", cfg.Bundler.NoConfirm)
	showValue(w, "  check_syntax", cfg.Bundler.CheckSyntax)
	showValue(w, "  extra_args", strings.Join(cfg.Bundler.ExtraArgs, " "))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", CmdStyle.Render("install"))
	showValue(w, "  upgrade_pip", cfg.Install.UpgradePip)
	showValue(w, "  extra_args", strings.Join(cfg.Install.ExtraArgs, " "))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", CmdStyle.Render("ui"))
	showValue(w, "  verbose", cfg.UI.Verbose)
	showValue(w, "  color_scheme", cfg.UI.ColorScheme)

	return nil
}

func showValue(w io.Writer, key string, value any) {
	fmt.Fprintf(w, "%s: %s\n", key, SuccessStyle.Render(fmt.Sprint(value)))
}
