// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/inspiration-station/packager/pkg/types"
)

// NativeRunner runs programs directly on the host.
type NativeRunner struct{}

// NewNativeRunner creates a new native runner.
func NewNativeRunner() *NativeRunner {
	return &NativeRunner{}
}

// LookPath resolves name on PATH, wrapping ErrProgramNotFound on failure.
func (r *NativeRunner) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrProgramNotFound, name, err)
	}
	return path, nil
}

// Run executes the invocation. Cancelling ctx kills the child process.
func (r *NativeRunner) Run(ctx context.Context, inv Invocation) *Result {
	cmd := exec.CommandContext(ctx, inv.Program, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}
	cmd.Stdout = writerOrDiscard(inv.Stdout)
	cmd.Stderr = writerOrDiscard(inv.Stderr)

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return NewErrorResult(1, fmt.Errorf("%s interrupted: %w", inv.Program, ctxErr))
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return NewExitCodeResult(types.ExitCode(exitErr.ExitCode()))
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return NewErrorResult(127, fmt.Errorf("%w: %s: %w", ErrProgramNotFound, inv.Program, err))
		}
		return NewErrorResult(1, fmt.Errorf("failed to run %s: %w", inv.Program, err))
	}

	return NewSuccessResult()
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
