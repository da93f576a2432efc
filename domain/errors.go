package domain

import (
	"errors"
	"fmt"
)

// Action failures are returned to the caller, never thrown across the
// engine boundary. They leave the hand untouched.
var (
	ErrNotYourTurn       = errors.New("not your turn")
	ErrInvalidAction     = errors.New("action not legal in current state")
	ErrInsufficientChips = errors.New("insufficient chips")

	// ErrStaleTransition marks a transition attempted against a phase that
	// has already been superseded. Expected under redelivery; callers swallow it.
	ErrStaleTransition = errors.New("stale transition")

	// ErrStuckRound is raised by the scheduler when a round fails to
	// progress across repeated turn cycles.
	ErrStuckRound = errors.New("round failed to progress")
)

// ActionError wraps an action rejection with the seat and action that caused it.
type ActionError struct {
	Position int
	Action   ActionKind
	Err      error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("seat %d %s: %v", e.Position, e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func newActionError(position int, action ActionKind, err error) error {
	return &ActionError{Position: position, Action: action, Err: err}
}
