package build

import "errors"

// Sentinels for calls made in the wrong build phase.
var (
	ErrImageAlreadyBuilt = errors.New("image has already been built")
	ErrImageNotBuilt     = errors.New("image has not been built yet")
)

// StateMachine tracks the one-way unbuilt -> built transition of a
// build. The transition happens exactly once, whether or not the build
// itself succeeded: a failed build still consumed the attempt.
type StateMachine struct {
	isBuilt bool
}

// IsBuilt reports whether the build attempt has happened.
func (s *StateMachine) IsBuilt() bool { return s.isBuilt }

// EnsureNotBuilt guards operations only valid before the build.
func (s *StateMachine) EnsureNotBuilt() error {
	if s.isBuilt {
		return ErrImageAlreadyBuilt
	}
	return nil
}

// EnsureIsBuilt guards operations only valid after the build.
func (s *StateMachine) EnsureIsBuilt() error {
	if !s.isBuilt {
		return ErrImageNotBuilt
	}
	return nil
}

// MarkBuilt flips the state. Flipping twice is a programming error.
func (s *StateMachine) MarkBuilt() error {
	if s.isBuilt {
		return ErrImageAlreadyBuilt
	}
	s.isBuilt = true
	return nil
}
