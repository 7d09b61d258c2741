// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Besides the Must* helpers it offers WriteProject, which lays out a minimal
// application project, and FakePython, a runner.Runner that imitates pip,
// py_compile and PyInstaller without a Python installation.
package testutil
