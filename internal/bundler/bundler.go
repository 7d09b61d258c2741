// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/inspiration-station/packager/internal/runner"
	"github.com/inspiration-station/packager/pkg/types"
)

var (
	// ErrEntryPointDefect is returned when the entry point does not compile.
	ErrEntryPointDefect = errors.New("entry point does not compile")
	// ErrBundleFailed is returned when the bundler exits unsuccessfully.
	ErrBundleFailed = errors.New("bundler failed")
	// ErrArtifactMissing is returned when the bundler succeeded but the
	// expected artifact was not produced.
	ErrArtifactMissing = errors.New("artifact not produced")
	// ErrPromoteFailed is returned when the artifact cannot be moved into the output directory.
	ErrPromoteFailed = errors.New("artifact promotion failed")
)

type (
	// Bundler runs PyInstaller and publishes its artifact.
	Bundler struct {
		Runner  runner.Runner
		Options Options
		Stdout  io.Writer
		Stderr  io.Writer
		Logger  *log.Logger
	}

	// StepError reports a failed bundler step.
	StepError struct {
		Step        error
		CommandLine string
		ExitCode    types.ExitCode
		Cause       error
	}
)

// Error implements the error interface.
func (e *StepError) Error() string {
	msg := e.Step.Error()
	if e.CommandLine != "" {
		msg += ": " + e.CommandLine
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s: exit status %d", msg, e.ExitCode)
	}
	return msg
}

// Unwrap exposes the step sentinel and the cause.
func (e *StepError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Step, e.Cause}
	}
	return []error{e.Step}
}

// Plan returns the invocations Bundle would run, in order.
func (b *Bundler) Plan() []runner.Invocation {
	var plan []runner.Invocation
	if b.Options.CheckSyntax {
		plan = append(plan, b.python(b.Options.SyntaxCheckArgs()))
	}
	return append(plan, b.python(b.Options.Args()))
}

// Bundle produces the artifact. On failure the output directory is untouched.
func (b *Bundler) Bundle(ctx context.Context) (*Artifact, error) {
	logger := b.logger()
	opts := b.Options

	if opts.CheckSyntax {
		inv := b.python(opts.SyntaxCheckArgs())
		logger.Info("checking entry point", "cmd", runner.CommandLine(inv))
		if err := b.run(ctx, ErrEntryPointDefect, inv); err != nil {
			return nil, err
		}
	}

	stage := opts.StagePath()
	if err := os.RemoveAll(stage); err != nil {
		return nil, &StepError{Step: ErrBundleFailed, Cause: fmt.Errorf("failed to clear staging directory: %w", err)}
	}
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return nil, &StepError{Step: ErrBundleFailed, Cause: fmt.Errorf("failed to create staging directory: %w", err)}
	}
	defer os.RemoveAll(stage)

	inv := b.python(opts.Args())
	logger.Info("bundling", "cmd", runner.CommandLine(inv))
	if err := b.run(ctx, ErrBundleFailed, inv); err != nil {
		return nil, err
	}

	fileName := opts.Format.FileName(opts.Name)
	staged := filepath.Join(stage, fileName)
	if _, err := Inspect(staged, opts.Name, opts.Format); err != nil {
		return nil, &StepError{Step: ErrArtifactMissing, Cause: err}
	}

	dst := opts.ArtifactPath()
	if err := Promote(staged, dst, opts.BackupPath()); err != nil {
		return nil, &StepError{Step: ErrPromoteFailed, Cause: err}
	}

	artifact, err := Inspect(dst, opts.Name, opts.Format)
	if err != nil {
		return nil, &StepError{Step: ErrPromoteFailed, Cause: err}
	}
	logger.Info("artifact produced", "path", artifact.Path, "size", artifact.Size, "sha256", artifact.Digest)
	return artifact, nil
}

// Clean removes the artifact and the files a build writes into the work
// directory, and returns the paths that existed and were removed. Anything
// else in the work directory is left alone; the directory itself is removed
// only once it is empty.
func (b *Bundler) Clean() ([]string, error) {
	opts := b.Options
	var removed []string
	paths := []string{opts.ArtifactPath(), opts.SpecPath(), opts.BuildPath(), opts.StagePath(), opts.BackupPath()}
	for _, path := range paths {
		if _, err := os.Lstat(path); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		b.logger().Debug("removed", "path", path)
		removed = append(removed, path)
	}
	if err := os.Remove(opts.WorkPath()); err == nil {
		removed = append(removed, opts.WorkPath())
	}
	return removed, nil
}

func (b *Bundler) run(ctx context.Context, step error, inv runner.Invocation) error {
	result := b.Runner.Run(ctx, inv)
	if result.Success() {
		return nil
	}
	return &StepError{
		Step:        step,
		CommandLine: runner.CommandLine(inv),
		ExitCode:    result.ExitCode,
		Cause:       result.Error,
	}
}

func (b *Bundler) python(args []string) runner.Invocation {
	return runner.Invocation{
		Program: b.Options.Python,
		Args:    args,
		Dir:     b.Options.ProjectDir,
		Stdout:  b.Stdout,
		Stderr:  b.Stderr,
	}
}

func (b *Bundler) logger() *log.Logger {
	if b.Logger == nil {
		return log.New(io.Discard)
	}
	return b.Logger
}
