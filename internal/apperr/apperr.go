// Package apperr defines the error taxonomy shared across the API.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can match on it instead of
// inspecting message text.
type Kind string

const (
	KindValidation Kind = "VALIDATION"
	KindNotFound   Kind = "NOT_FOUND"
	KindTransport  Kind = "TRANSPORT"
	KindStore      Kind = "STORE"
	KindState      Kind = "STATE"
)

type DomainError struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Validation reports malformed, user-correctable input. Field names the
// offending field.
func Validation(field, message string) *DomainError {
	return &DomainError{Kind: KindValidation, Field: field, Message: message}
}

// NotFound reports a missing or expired token, connection, or project.
func NotFound(message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Message: message}
}

// Transport reports a mail dispatch failure.
func Transport(message string, err error) *DomainError {
	return &DomainError{Kind: KindTransport, Message: message, Err: err}
}

// Store reports an unreachable or failing backing store.
func Store(message string, err error) *DomainError {
	return &DomainError{Kind: KindStore, Message: message, Err: err}
}

// State reports an invalid connection-state transition.
func State(message string) *DomainError {
	return &DomainError{Kind: KindState, Message: message}
}

// KindOf returns the Kind of err, or "" if err carries no DomainError.
func KindOf(err error) Kind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Is reports whether err carries a DomainError of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
