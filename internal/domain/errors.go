package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure into the taxonomy the API layer maps to
// HTTP statuses. The transient flag, not the kind alone, decides whether a
// remote call is retried.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindConflict    ErrorKind = "conflict"
	KindResolution  ErrorKind = "resolution"
	KindRemote      ErrorKind = "remote_api"
	KindRateLimited ErrorKind = "rate_limited"
	KindTimeout     ErrorKind = "timeout"
)

type Error struct {
	Kind      ErrorKind
	Message   string
	Field     string // offending field, validation errors
	Entity    string // entity type, not-found errors
	EntityID  string
	Transient bool // eligible for retry with backoff
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func NewValidation(message, field string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

func NewNotFound(entity, id string) *Error {
	return &Error{
		Kind:     KindNotFound,
		Message:  fmt.Sprintf("%s %q not found", entity, id),
		Entity:   entity,
		EntityID: id,
	}
}

func NewConflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func NewResolution(message string, cause error) *Error {
	return &Error{Kind: KindResolution, Message: message, cause: cause}
}

func NewRemote(message string, transient bool, cause error) *Error {
	return &Error{Kind: KindRemote, Message: message, Transient: transient, cause: cause}
}

func NewRateLimited(message string) *Error {
	return &Error{Kind: KindRateLimited, Message: message, Transient: true}
}

// NewTimeout marks an operation whose caller-supplied deadline elapsed.
// Deliberately not transient: once the overall deadline is gone there is
// nothing left to retry against.
func NewTimeout(message string, cause error) *Error {
	return &Error{Kind: KindTimeout, Message: message, cause: cause}
}

// KindOf returns the taxonomy kind of err, or "" for errors outside the
// taxonomy.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

func IsRateLimited(err error) bool { return KindOf(err) == KindRateLimited }

// IsTransient reports whether err may succeed on retry. Errors outside the
// taxonomy are never retried.
func IsTransient(err error) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Transient
	}
	return false
}
