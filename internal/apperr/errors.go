package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error for callers and transports.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindAuthorization   Kind = "authorization"
	KindPrecondition    Kind = "precondition"
	KindConflict        Kind = "conflict"
	KindContentRejected Kind = "content_rejected"
	KindRateLimited     Kind = "rate_limited"
	KindUnavailable     Kind = "unavailable"
)

// Error is the single error type surfaced by the chat core.
type Error struct {
	Kind    Kind
	Code    string
	Message string

	// Reason is set for content rejections.
	Reason string
	// RetryAfter is set for rate-limited calls.
	RetryAfter time.Duration

	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same kind and code, so package-level
// sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Authorization(code, message string) *Error {
	return &Error{Kind: KindAuthorization, Code: code, Message: message}
}

func Precondition(code, message string) *Error {
	return &Error{Kind: KindPrecondition, Code: code, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func ContentRejected(reason string) *Error {
	return &Error{
		Kind:    KindContentRejected,
		Code:    "content_rejected",
		Message: "content rejected by moderation",
		Reason:  reason,
	}
}

func RateLimited(actionClass string, retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Code:       "rate_limited",
		Message:    fmt.Sprintf("rate limit exceeded for %s", actionClass),
		RetryAfter: retryAfter,
	}
}

// Unavailable wraps an infrastructure failure. The cause is kept for logs
// and never rendered to clients.
func Unavailable(cause error) *Error {
	return &Error{
		Kind:    KindUnavailable,
		Code:    "unavailable",
		Message: "service temporarily unavailable",
		Cause:   cause,
	}
}

// KindOf returns the kind of err, or KindUnavailable for errors that did not
// originate in the chat core.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnavailable
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// As extracts the *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
