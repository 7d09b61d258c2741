// SPDX-License-Identifier: MPL-2.0

// Package types holds small value types shared across packages.
package types

import (
	"errors"
	"fmt"
	"strconv"
)

// ExitFailure is the exit status used when no child process status applies.
const ExitFailure ExitCode = 1

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is the status a child process (pip, PyInstaller) exited with,
	// and the status packager itself exits with. 0 means success.
	ExitCode int

	// InvalidExitCodeError reports a status outside 0-255, e.g. a Windows
	// NTSTATUS value surfaced by a crashed child.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d is outside 0-255", e.Value)
}

// Unwrap returns ErrInvalidExitCode.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate reports whether c can be passed to os.Exit portably.
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess reports whether c is 0.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// ForProcess returns the status packager should exit with to report c:
// c itself when it is a non-zero value in 0-255, ExitFailure otherwise.
func (c ExitCode) ForProcess() ExitCode {
	if c.IsSuccess() || c.Validate() != nil {
		return ExitFailure
	}
	return c
}

func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
