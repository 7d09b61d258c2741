// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"

	"github.com/inspiration-station/packager/internal/bundler"
	"github.com/inspiration-station/packager/internal/installer"
	"github.com/inspiration-station/packager/internal/issue"
	"github.com/inspiration-station/packager/pkg/types"
)

var (
	// ErrEnvironment marks missing runtime or tooling, or an unusable directory layout.
	ErrEnvironment = errors.New("environment error")
	// ErrDependencyResolution marks an unreadable manifest or an unsatisfiable requirement.
	ErrDependencyResolution = errors.New("dependency resolution error")
	// ErrBundling marks an entry-point defect or a bundler failure.
	ErrBundling = errors.New("bundling error")
)

// Error is a build failure. Kind is one of ErrEnvironment,
// ErrDependencyResolution or ErrBundling; Err carries the user-facing context.
type Error struct {
	Kind  error
	Stage Stage
	Err   *issue.ActionableError
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Err.Error() }

// Unwrap exposes the kind sentinel and the actionable error.
func (e *Error) Unwrap() []error { return []error{e.Kind, e.Err} }

// ExitCode returns the exit code of the external step that failed, or 0
// when the failure did not come from a child process.
func (e *Error) ExitCode() types.ExitCode {
	var installErr *installer.InstallError
	if errors.As(e.Err, &installErr) {
		return installErr.ExitCode
	}
	var stepErr *bundler.StepError
	if errors.As(e.Err, &stepErr) {
		return stepErr.ExitCode
	}
	return 0
}

func newError(kind error, stage Stage, ec *issue.ErrorContext) *Error {
	return &Error{Kind: kind, Stage: stage, Err: ec.Build()}
}

func invalidLayoutError(projectDir string, cause error) *Error {
	return newError(ErrEnvironment, StageDependenciesInstalling, issue.NewErrorContext().
		WithOperation("check build directories").
		WithResource(projectDir).
		WithSuggestion("Keep dist_dir and work_dir apart, with neither inside the other").
		WithSuggestion("Point work_dir at a subdirectory of the project, such as \"build\"").
		Wrap(cause))
}

func pythonNotFoundError(candidates []string, cause error) *Error {
	return newError(ErrEnvironment, StageDependenciesInstalling, issue.NewErrorContext().
		WithOperation("find a Python interpreter").
		WithResource(fmt.Sprint(candidates)).
		WithSuggestion("Install Python 3 and make sure it is on your PATH").
		WithSuggestion("Set 'python' in packager.cue or PACKAGER_PYTHON to the interpreter path").
		Wrap(cause))
}

func manifestNotFoundError(path string, cause error) *Error {
	return newError(ErrDependencyResolution, StageDependenciesInstalling, issue.NewErrorContext().
		WithOperation("read dependency manifest").
		WithResource(path).
		WithSuggestion("Run the build from the project root").
		WithSuggestion("Set 'manifest' in packager.cue to your requirements.txt or pyproject.toml").
		Wrap(cause))
}

func manifestError(path string, cause error) *Error {
	var ae *issue.ActionableError
	if errors.As(cause, &ae) {
		return &Error{Kind: ErrDependencyResolution, Stage: StageDependenciesInstalling, Err: ae}
	}
	return newError(ErrDependencyResolution, StageDependenciesInstalling, issue.NewErrorContext().
		WithOperation("parse dependency manifest").
		WithResource(path).
		WithSuggestion("Fix the requirement on the reported line").
		WithSuggestion("Each line must be a package name with an optional version specifier, e.g. requests>=2.31, or a URL or path pip can install").
		Wrap(cause))
}

func entryPointMissingError(path string, cause error) *Error {
	return newError(ErrBundling, StageDependenciesInstalling, issue.NewErrorContext().
		WithOperation("find entry point").
		WithResource(path).
		WithSuggestion("Run the build from the project root").
		WithSuggestion("Set 'entry_point' in packager.cue to your application's main script").
		Wrap(cause))
}

func installError(manifestPath string, cause error) *Error {
	return newError(ErrDependencyResolution, StageDependenciesInstalling, issue.NewErrorContext().
		WithOperation("install dependencies").
		WithResource(manifestPath).
		WithSuggestion("Check the package names and version specifiers in the manifest").
		WithSuggestion("Verify that the package index is reachable from this machine").
		WithSuggestion("Read the pip output above for the requirement that failed").
		Wrap(cause))
}

func bundlingError(entryPoint string, cause error) *Error {
	ec := issue.NewErrorContext().WithResource(entryPoint).Wrap(cause)
	switch {
	case errors.Is(cause, bundler.ErrEntryPointDefect):
		ec.WithOperation("compile entry point").
			WithSuggestion("Fix the syntax error reported above").
			WithSuggestion("Run 'python " + entryPoint + "' to reproduce the problem")
	case errors.Is(cause, bundler.ErrArtifactMissing):
		ec.WithOperation("locate bundled artifact").
			WithSuggestion("Check bundler.extra_args for options that change the output layout")
	case errors.Is(cause, bundler.ErrPromoteFailed):
		ec.WithOperation("publish artifact").
			WithSuggestion("Close any running copy of the application and retry").
			WithSuggestion("Check permissions on the output directory")
	default:
		ec.WithOperation("bundle application").
			WithSuggestion("Read the bundler output above for the failing module").
			WithSuggestion("Make sure every import of the entry point is declared in the manifest")
	}
	return newError(ErrBundling, StageBundling, ec)
}
