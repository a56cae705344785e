package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an operation failure so callers and the HTTP layer can
// react without string matching.
type Kind string

const (
	KindInvalidState     Kind = "invalid_state"
	KindForbidden        Kind = "forbidden"
	KindUnauthenticated  Kind = "unauthenticated"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindOutOfRange       Kind = "out_of_range"
	KindMismatch         Kind = "mismatch"
	KindInvalidSignature Kind = "invalid_signature"
	KindAlreadyConfirmed Kind = "already_confirmed"
	KindValidation       Kind = "validation"
	KindInternal         Kind = "internal"
)

// Error carries a kind plus a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Message returns the user-facing message of err, or a generic fallback.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// StatusCode maps an error kind to an HTTP status code.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindInvalidState, KindAlreadyConfirmed:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindOutOfRange, KindMismatch, KindValidation:
		return http.StatusBadRequest
	case KindInvalidSignature:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
