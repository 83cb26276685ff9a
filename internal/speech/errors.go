package speech

import (
	"errors"
	"fmt"
)

// ErrCapability matches every CapabilityError
var ErrCapability = errors.New("speech capability unavailable")

// Capability failure kinds. A CapabilityError wrapping one of these matches
// it with errors.Is.
var (
	ErrNoSpeech         = errors.New("no speech detected")
	ErrAudioCapture     = errors.New("audio capture failed")
	ErrPermissionDenied = errors.New("microphone permission denied")
)

var codes = map[string]error{
	"no-speech":         ErrNoSpeech,
	"audio-capture":     ErrAudioCapture,
	"permission-denied": ErrPermissionDenied,
}

// CapabilityError is a recoverable speech failure. The caller may retry the
// same word.
type CapabilityError struct {
	Code string
	Err  error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

func (e *CapabilityError) Is(target error) bool {
	return target == ErrCapability
}

// Retryable is always true; capability failures never advance the session
func (e *CapabilityError) Retryable() bool {
	return true
}

// NewCapabilityError wraps one of the capability sentinels
func NewCapabilityError(kind error) *CapabilityError {
	for code, err := range codes {
		if err == kind {
			return &CapabilityError{Code: code, Err: kind}
		}
	}
	return &CapabilityError{Code: "audio-capture", Err: kind}
}

// ParseCapabilityError maps a client-reported code such as "no-speech" to a
// CapabilityError. ok is false for unknown codes.
func ParseCapabilityError(code string) (err *CapabilityError, ok bool) {
	kind, ok := codes[code]
	if !ok {
		return nil, false
	}
	return &CapabilityError{Code: code, Err: kind}, true
}
