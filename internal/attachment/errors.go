package attachment

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAttachment is the negative outcome: the message is valid but does
	// not announce a file.
	ErrNotAttachment = errors.New("not a file attachment")
	// ErrMalformed reports a type-6 message that cannot be parsed.
	ErrMalformed = errors.New("malformed attachment message")
)

// ParseError names the field that made a file-attachment message unusable.
type ParseError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("attachment %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("attachment %s: %s", e.Field, e.Reason)
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformed, e.Err}
	}
	return []error{ErrMalformed}
}
