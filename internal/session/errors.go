package session

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks fatal setup problems such as an unknown
	// assessment or an empty word list. Retrying will not help.
	ErrConfiguration = errors.New("configuration error")
	ErrEmptyWordList = fmt.Errorf("%w: session has no words", ErrConfiguration)

	ErrInvalidState = errors.New("operation not allowed in current session state")
	ErrNotComplete  = errors.New("session not complete")

	// ErrPersistence wraps gateway failures that were reported to the caller.
	// The in-memory session is still valid when it is returned.
	ErrPersistence = errors.New("persistence error")

	ErrCorruptState = errors.New("corrupt session state")
)

// CorruptStateError describes a stored snapshot that cannot be resumed
type CorruptStateError struct {
	UserID       string
	AssessmentID string
	Reason       string
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt session state for user %s assessment %s: %s", e.UserID, e.AssessmentID, e.Reason)
}

// Is makes errors.Is(err, ErrCorruptState) match
func (e *CorruptStateError) Is(target error) bool {
	return target == ErrCorruptState
}
