// SPDX-License-Identifier: MPL-2.0

// Package pipeline orchestrates a build: preflight checks, dependency
// installation, then bundling.
//
// The run is a linear state machine:
//
//	start -> dependencies-installing -> dependencies-ready -> bundling -> artifact-produced
//
// with a move to failed from either active stage. Every failure is terminal
// for the run and is returned as an *Error whose Kind is ErrEnvironment,
// ErrDependencyResolution or ErrBundling.
package pipeline
