// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE helpers: size guarding for user files and
// error formatting that prefixes every CUE error with its JSON-style path.
package cueutil
