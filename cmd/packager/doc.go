// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the packager CLI: build (the default), clean and
// config. Handlers are thin; the work happens in internal/pipeline.
package cmd
