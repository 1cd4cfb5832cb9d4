package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the delivery layer.
type Kind int

const (
	// KindNotFound means a referenced task, chat or document does not exist.
	KindNotFound Kind = iota
	// KindPrecondition means a guard check rejected the operation
	// (duplicate review, rating out of range, wrong responder, ...).
	KindPrecondition
	// KindStoreUnavailable means the document store failed; the operation
	// must not be treated as succeeded.
	KindStoreUnavailable
	// KindUnauthorized means no authenticated identity was available.
	KindUnauthorized
)

// Error is the discriminated failure returned by every public operation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Precondition(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Store wraps a document store failure.
func Store(err error, message string) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: message, Err: err}
}

func IsNotFound(err error) bool     { return kindOf(err) == KindNotFound }
func IsPrecondition(err error) bool { return kindOf(err) == KindPrecondition }
func IsUnavailable(err error) bool  { return kindOf(err) == KindStoreUnavailable }
func IsUnauthorized(err error) bool { return kindOf(err) == KindUnauthorized }

func kindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return -1
}
