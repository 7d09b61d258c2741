// SPDX-License-Identifier: MPL-2.0

// Package installer makes the packages declared in the dependency manifest
// available to the interpreter that will run the bundler.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/inspiration-station/packager/internal/manifest"
	"github.com/inspiration-station/packager/internal/runner"
	"github.com/inspiration-station/packager/pkg/types"
)

// ErrInstallFailed is the sentinel error wrapped by InstallError.
var ErrInstallFailed = errors.New("dependency installation failed")

type (
	// Installer installs the manifest's requirements with pip.
	Installer struct {
		Runner   runner.Runner
		Python   string
		Manifest *manifest.Manifest
		// BundlerPackage is installed alongside the manifest unless the manifest
		// already declares it ("" disables).
		BundlerPackage string
		// UpgradePip runs "pip install --upgrade pip" first.
		UpgradePip bool
		// ExtraArgs are appended to the pip install command line.
		ExtraArgs []string
		Dir       string
		Stdout    io.Writer
		Stderr    io.Writer
		Logger    *log.Logger
	}

	// InstallError reports the pip invocation that failed.
	InstallError struct {
		CommandLine string
		ExitCode    types.ExitCode
		Cause       error
	}
)

// Error implements the error interface.
func (e *InstallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.CommandLine, e.Cause)
	}
	return fmt.Sprintf("%s: exit status %d", e.CommandLine, e.ExitCode)
}

// Unwrap exposes both ErrInstallFailed and the underlying cause.
func (e *InstallError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInstallFailed, e.Cause}
	}
	return []error{ErrInstallFailed}
}

// Plan returns the pip invocations Install would run, in order.
func (i *Installer) Plan() []runner.Invocation {
	var plan []runner.Invocation
	if i.UpgradePip {
		plan = append(plan, i.pip("install", "--upgrade", "pip"))
	}

	targets := i.Manifest.InstallArgs()
	if i.BundlerPackage != "" && !i.Manifest.Declares(i.BundlerPackage) {
		targets = append(targets, i.BundlerPackage)
	}
	// pip refuses an install with nothing to install.
	if len(targets) == 0 {
		return plan
	}

	args := append([]string{"install"}, targets...)
	args = append(args, i.ExtraArgs...)
	return append(plan, i.pip(args...))
}

// Install runs the plan. The first failing step aborts the rest.
func (i *Installer) Install(ctx context.Context) error {
	logger := i.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	for _, inv := range i.Plan() {
		cmdline := runner.CommandLine(inv)
		logger.Info("installing dependencies", "cmd", cmdline)

		result := i.Runner.Run(ctx, inv)
		if !result.Success() {
			return &InstallError{CommandLine: cmdline, ExitCode: result.ExitCode, Cause: result.Error}
		}
	}

	logger.Info("dependencies ready", "packages", len(i.Manifest.Requirements))
	return nil
}

func (i *Installer) pip(args ...string) runner.Invocation {
	return runner.Invocation{
		Program: i.Python,
		Args:    append([]string{"-m", "pip"}, args...),
		Dir:     i.Dir,
		Stdout:  i.Stdout,
		Stderr:  i.Stderr,
	}
}
