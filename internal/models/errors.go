package models

import (
	"errors"
	"fmt"
)

// ErrEmptySession marks a batch that produced no fields or no key actions.
var ErrEmptySession = errors.New("session has no keystroke events")

// MalformedEventError describes an event record that could not be read as
// [action, keyCode, timestamp].
type MalformedEventError struct {
	Raw    any
	Reason string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed key event %v: %s", e.Raw, e.Reason)
}

// MalformedFieldError describes a field record that could not be read as
// [fieldIdentifier, displayLabel, events].
type MalformedFieldError struct {
	Raw    any
	Reason string
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed field record %v: %s", e.Raw, e.Reason)
}

// IngestionParseError is returned when a payload is not a JSON array.
type IngestionParseError struct {
	Err error
}

func (e *IngestionParseError) Error() string {
	return fmt.Sprintf("failed to parse behaviodata: %v", e.Err)
}

func (e *IngestionParseError) Unwrap() error {
	return e.Err
}
