// Package errs defines the error taxonomy shared by the engine components.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument indicates a bad duration or malformed reference.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState indicates a command that is not valid in the current phase.
	ErrInvalidState = errors.New("invalid state")
	// ErrAudioSource indicates a missing, unreadable or empty media source.
	ErrAudioSource = errors.New("audio source error")
	// ErrPersistence indicates a store read or write failure.
	ErrPersistence = errors.New("persistence error")
	// ErrNotFound indicates an unknown profile id.
	ErrNotFound = errors.New("not found")
)

// InvalidArgument builds an ErrInvalidArgument with a message.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// InvalidState builds an ErrInvalidState with a message.
func InvalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// AudioSource wraps cause as an ErrAudioSource for path.
func AudioSource(path string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrAudioSource, path)
	}
	return fmt.Errorf("%w: %s: %w", ErrAudioSource, path, cause)
}

// Persistence wraps cause as an ErrPersistence for op.
func Persistence(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, cause)
}
