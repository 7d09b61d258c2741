// SPDX-License-Identifier: MPL-2.0

// Package platform maps the host operating system to the artifact format a
// bundled application takes on it.
//
// The format is always derived from runtime.GOOS. Builds never target another
// platform: a Windows host produces a .exe, a macOS host produces a .app bundle,
// and every other host produces a bare executable file.
package platform
