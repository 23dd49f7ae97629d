package booking

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so it can cross service boundaries intact
type Kind string

const (
	KindValidation          Kind = "ValidationError"
	KindNotFound            Kind = "NotFound"
	KindUserNotFound        Kind = "UserNotFound"
	KindTourNotFound        Kind = "TourNotFound"
	KindUpstreamUnavailable Kind = "UpstreamUnavailable"
	KindInvalidTransition   Kind = "InvalidStateTransition"
	KindConflict            Kind = "Conflict"
	KindUnauthorized        Kind = "Unauthorized"
	KindForbidden           Kind = "Forbidden"
	KindInternal            Kind = "InternalError"
)

// Retryable reports whether repeating the same request may succeed
func (k Kind) Retryable() bool {
	return k == KindUpstreamUnavailable || k == KindConflict
}

// Error is the outcome of a failed booking operation
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// NewError builds an error of the given kind
func NewError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// Validationf reports malformed or out-of-range input
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

// Transitionf reports a state machine rule violation
func Transitionf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidTransition, Reason: fmt.Sprintf(format, args...)}
}

// Internal wraps a local failure, typically persistence
func Internal(reason string, err error) *Error {
	return &Error{Kind: KindInternal, Reason: reason, Err: err}
}

// Upstream wraps a remote call that did not complete
func Upstream(reason string, err error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Reason: reason, Err: err}
}

// KindOf classifies err; unknown errors are internal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf returns the human-readable part of err
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return "internal error"
}
