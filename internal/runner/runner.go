// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	"errors"
	"io"
)

// ErrProgramNotFound is returned when an executable cannot be resolved on PATH.
var ErrProgramNotFound = errors.New("program not found")

type (
	// Invocation describes one external program run.
	Invocation struct {
		// Program is the executable name or path.
		Program string
		// Args are the arguments passed to Program.
		Args []string
		// Dir is the working directory ("" for the current directory).
		Dir string
		// Env holds extra KEY=VALUE entries appended to the inherited environment.
		Env []string
		// Stdout and Stderr receive the child's output (nil discards it).
		Stdout io.Writer
		Stderr io.Writer
	}

	// Runner runs external programs.
	Runner interface {
		// LookPath resolves an executable name to a path.
		LookPath(name string) (string, error)
		// Run executes the invocation and blocks until it exits.
		Run(ctx context.Context, inv Invocation) *Result
	}
)
