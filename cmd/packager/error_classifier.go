// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/inspiration-station/packager/internal/bundler"
	"github.com/inspiration-station/packager/internal/config"
	"github.com/inspiration-station/packager/internal/installer"
	"github.com/inspiration-station/packager/internal/issue"
	"github.com/inspiration-station/packager/internal/manifest"
	"github.com/inspiration-station/packager/internal/pipeline"
)

// classifyBuildError maps a build failure to an issue catalog ID and returns
// a styled message for CLI rendering. The order matters: an interrupted or
// out-of-space run is reported as such whatever stage it happened in.
func classifyBuildError(err error, verbose bool) (issueID issue.Id, styledMsg string) {
	issueID = issue.BundlingFailedId

	var pErr *pipeline.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		issueID = issue.BuildInterruptedId
	case errors.Is(err, syscall.ENOSPC):
		issueID = issue.DiskFullId
	case errors.Is(err, os.ErrPermission):
		issueID = issue.PermissionDeniedId
	case errors.Is(err, config.ErrInvalidConfig):
		issueID = issue.ConfigLoadFailedId
	case errors.Is(err, pipeline.ErrEnvironment):
		issueID = issue.PythonNotFoundId
	case errors.Is(err, manifest.ErrInvalidRequirement), errors.Is(err, manifest.ErrInvalidManifest):
		issueID = issue.ManifestParseErrorId
	case errors.Is(err, installer.ErrInstallFailed):
		issueID = issue.DependencyInstallFailedId
	case errors.Is(err, pipeline.ErrDependencyResolution):
		issueID = issue.ManifestNotFoundId
	case errors.Is(err, bundler.ErrEntryPointDefect):
		issueID = issue.EntryPointDefectId
	case errors.As(err, &pErr) && pErr.Stage == pipeline.StageDependenciesInstalling && errors.Is(pErr.Kind, pipeline.ErrBundling):
		issueID = issue.EntryPointNotFoundId
	}

	return issueID, fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
}
