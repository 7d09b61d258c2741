// SPDX-License-Identifier: MPL-2.0

// Package config handles build configuration using Viper with CUE as the file format.
//
// Configuration is read from packager.cue in the project directory, or from an
// explicit path passed with --config. Values missing from the file fall back to
// defaults, and PACKAGER_* environment variables override both (for example
// PACKAGER_PYTHON or PACKAGER_BUNDLER_WINDOWED).
//
// Files are validated against an embedded CUE schema (config_schema.cue) before
// they are merged into Viper, so typos and wrong types are reported with the
// offending CUE path.
package config
