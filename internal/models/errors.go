package models

import "fmt"

type ErrorResponse struct {
	Error string `json:"error"`
}

// LoadError reports an unreachable or malformed question source.
// It is fatal at startup: no questions means no sessions.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load questions from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// InvalidStateError reports an operation invoked outside its valid
// session state. It is always a caller bug and is never silently ignored.
type InvalidStateError struct {
	Op     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// PersistenceError reports a durable-store failure. Reads recover by
// falling back to defaults; failed writes are surfaced but do not end
// the current session.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("progress %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
