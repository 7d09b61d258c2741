// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inspiration-station/packager/pkg/types"
)

func newCleanCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the artifact and intermediate build files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), flags.loadOptions())
			if err != nil {
				return app.fail(cmd, configLoadError(err, flags.verbose), "dark", types.ExitFailure)
			}

			verbose := flags.verbose || cfg.UI.Verbose
			removed, err := app.newPipeline(cfg, verbose).Clean()
			if err != nil {
				return app.fail(cmd, buildError(err, verbose), glamourStyle(cfg.UI.ColorScheme), types.ExitFailure)
			}

			if len(removed) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("Nothing to clean"))
				return nil
			}
			for _, path := range removed {
				fmt.Fprintf(app.stdout, "%s Removed %s\n", SuccessStyle.Render("✓"), path)
			}
			return nil
		},
	}
}
