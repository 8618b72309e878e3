package protocol

import (
	"errors"
	"fmt"
)

// Frame-level decode conditions. Decoders wrap these with context; callers
// test for them with errors.Is.
var (
	// ErrTruncatedFrame is returned when a decoder reads past the payload end.
	ErrTruncatedFrame = errors.New("truncated frame")

	// ErrExcessData is returned when bytes remain after a decoder completed.
	ErrExcessData = errors.New("excess data at end of frame")

	// ErrMalformed is returned for a sub-field that violates its layout.
	ErrMalformed = errors.New("malformed field")

	// ErrFrameTooLarge is returned when a payload exceeds MaxPacketSize.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrUnrecognizedCommand matches every *UnrecognizedCommandError.
	ErrUnrecognizedCommand = errors.New("unrecognized command")
)

// UnrecognizedCommandError reports a payload whose leading bytes matched no
// known command name.
type UnrecognizedCommandError struct {
	Command string
	Raw     []byte
}

func (e *UnrecognizedCommandError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("unrecognized command (%d bytes)", len(e.Raw))
	}
	return fmt.Sprintf("unrecognized command %q (%d bytes)", e.Command, len(e.Raw))
}

// Is makes errors.Is(err, ErrUnrecognizedCommand) succeed.
func (e *UnrecognizedCommandError) Is(target error) bool {
	return target == ErrUnrecognizedCommand
}

// VersionMismatchError reports a setup option whose echoed value does not
// match what this client requires. It is always fatal for the connection.
type VersionMismatchError struct {
	Option string
	Got    string
	Want   string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("the server is too old for this client: setup option %s=%s is required but the server answered %q",
		e.Option, e.Want, e.Got)
}

// FatalError marks an error that must terminate the connection.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err so that IsFatal reports true for it.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether err should end the connection.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return true
	}
	var vm *VersionMismatchError
	return errors.As(err, &vm)
}

// truncated builds an ErrTruncatedFrame with field context.
func truncated(field string, need, have int) error {
	return fmt.Errorf("%w: %s needs %d bytes, %d left", ErrTruncatedFrame, field, need, have)
}

// malformed builds an ErrMalformed with context.
func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
