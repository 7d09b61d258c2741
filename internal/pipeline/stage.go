// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	// StageStart is the initial stage before any work is done.
	StageStart Stage = "start"
	// StageDependenciesInstalling covers preflight checks and pip.
	StageDependenciesInstalling Stage = "dependencies-installing"
	// StageDependenciesReady is reached once every requirement is installed.
	StageDependenciesReady Stage = "dependencies-ready"
	// StageBundling covers the syntax check, the bundler run and promotion.
	StageBundling Stage = "bundling"
	// StageArtifactProduced is the terminal success stage.
	StageArtifactProduced Stage = "artifact-produced"
	// StageFailed is the terminal failure stage.
	StageFailed Stage = "failed"
)

// ErrInvalidTransition is returned by Machine.To for a move the pipeline does not allow.
var ErrInvalidTransition = errors.New("invalid stage transition")

// transitions lists the allowed successors of every stage. The only branch
// is the move to StageFailed from an active stage.
var transitions = map[Stage][]Stage{
	StageStart:                  {StageDependenciesInstalling},
	StageDependenciesInstalling: {StageDependenciesReady, StageFailed},
	StageDependenciesReady:      {StageBundling},
	StageBundling:               {StageArtifactProduced, StageFailed},
}

type (
	// Stage is a state of the build pipeline.
	Stage string

	// Transition records a stage change.
	Transition struct {
		From Stage
		To   Stage
		At   time.Time
	}

	// Machine tracks the pipeline stage and rejects illegal transitions.
	// The zero value is not usable; call NewMachine.
	Machine struct {
		current  Stage
		history  []Transition
		observer func(Transition)
		now      func() time.Time
	}
)

// String returns the string representation of the Stage.
func (s Stage) String() string { return string(s) }

// IsTerminal reports whether no transition leaves s.
func (s Stage) IsTerminal() bool {
	return s == StageArtifactProduced || s == StageFailed
}

// IsActive reports whether s is a stage in which work runs and may fail.
func (s Stage) IsActive() bool {
	return slices.Contains(transitions[s], StageFailed)
}

// NewMachine returns a machine in StageStart. observer, when non-nil, is
// called after every accepted transition.
func NewMachine(observer func(Transition)) *Machine {
	return &Machine{current: StageStart, observer: observer, now: time.Now}
}

// Current returns the current stage.
func (m *Machine) Current() Stage { return m.current }

// To moves the machine to next.
func (m *Machine) To(next Stage) error {
	if !slices.Contains(transitions[m.current], next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.current, next)
	}
	t := Transition{From: m.current, To: next, At: m.now()}
	m.current = next
	m.history = append(m.history, t)
	if m.observer != nil {
		m.observer(t)
	}
	return nil
}

// Fail moves the machine to StageFailed if the current stage allows it.
func (m *Machine) Fail() error {
	return m.To(StageFailed)
}

// History returns the accepted transitions in order.
func (m *Machine) History() []Transition {
	return slices.Clone(m.history)
}

// Stages returns every stage visited, starting with StageStart.
func (m *Machine) Stages() []Stage {
	stages := make([]Stage, 0, len(m.history)+1)
	stages = append(stages, StageStart)
	for _, t := range m.history {
		stages = append(stages, t.To)
	}
	return stages
}
