// SPDX-License-Identifier: MPL-2.0

// Package bundler drives PyInstaller to turn the entry-point script into a
// standalone executable for the host platform.
//
// PyInstaller writes into a private staging directory under the work dir. The
// finished artifact is moved into the output directory only after the bundler
// exits successfully and the expected artifact is present, so a failed build
// never leaves a partial artifact behind and never disturbs the artifact of the
// previous successful build.
package bundler
