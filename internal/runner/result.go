// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"fmt"

	"github.com/inspiration-station/packager/pkg/types"
)

// Result is the outcome of an Invocation.
//
// A program that ran and exited non-zero has ExitCode set and a nil Error.
// Error is reserved for failures to run the program at all.
type Result struct {
	ExitCode types.ExitCode
	Error    error
}

// NewErrorResult creates a Result with the given exit code and error.
func NewErrorResult(code types.ExitCode, err error) *Result {
	return &Result{ExitCode: code, Error: err}
}

// NewSuccessResult creates a Result with exit code 0 and no error.
func NewSuccessResult() *Result {
	return &Result{}
}

// NewExitCodeResult creates a Result with the given exit code and no error.
func NewExitCodeResult(code types.ExitCode) *Result {
	return &Result{ExitCode: code}
}

// Success reports whether the program ran and exited 0.
func (r *Result) Success() bool {
	return r.Error == nil && r.ExitCode.IsSuccess()
}

// Err folds the result into a single error, nil on success.
func (r *Result) Err() error {
	switch {
	case r.Error != nil:
		return r.Error
	case !r.ExitCode.IsSuccess():
		return &ExitStatusError{Code: r.ExitCode}
	default:
		return nil
	}
}

// ExitStatusError reports a non-zero exit of a program that otherwise ran.
type ExitStatusError struct {
	Code types.ExitCode
}

// Error implements the error interface.
func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}
