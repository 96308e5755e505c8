package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// ParseError reports a malformed command payload.
type ParseError struct {
	Command string
	Reason  string
	Err     error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("invalid %s command: %s", e.Command, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// MembershipError reports a command naming someone outside the roster.
type MembershipError struct {
	Name string
}

func (e *MembershipError) Error() string {
	return fmt.Sprintf("player %q is not in the session", e.Name)
}

// TransportError reports a failed call to the session store.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("failed to %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CompletionError reports a failed or empty LLM completion.
type CompletionError struct {
	Status  int
	Message string
}

func (e *CompletionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("completion failed (%d): %s", e.Status, e.Message)
	}
	return "completion failed: " + e.Message
}
