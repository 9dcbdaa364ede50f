package macro

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("macro not found")
	ErrInvalidName      = errors.New("invalid macro name")
	ErrInvalidURL       = errors.New("invalid start URL")
	ErrAlreadyRecording = errors.New("a recording session is already running")
	ErrNotRecording     = errors.New("recorder is not active")

	// Replay failure kinds, carried by ReplayError
	ErrTimeout = errors.New("timed out")
	ErrDriver  = errors.New("browser driver failure")
)

// ReplayError reports a step that could not be replayed
type ReplayError struct {
	Kind     error // ErrTimeout or ErrDriver
	Action   string
	Selector string
	Err      error
}

func (e *ReplayError) Error() string {
	if e.Kind == ErrTimeout {
		return fmt.Sprintf("timed out locating selector %q for action %q", e.Selector, e.Action)
	}
	if e.Err != nil {
		return fmt.Sprintf("browser driver failed running action %q on selector %q: %v", e.Action, e.Selector, e.Err)
	}
	return fmt.Sprintf("browser driver failed running action %q on selector %q", e.Action, e.Selector)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As
func (e *ReplayError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
