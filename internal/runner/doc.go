// SPDX-License-Identifier: MPL-2.0

// Package runner executes the external programs a build delegates to (the
// Python interpreter running pip, py_compile and PyInstaller).
//
// Output of child processes is streamed to the caller's writers untouched so
// that failures surface verbatim to the operator.
package runner
