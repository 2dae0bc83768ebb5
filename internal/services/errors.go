package services

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of a domain error
type ErrorKind string

const (
	KindInvalidOperation ErrorKind = "invalid_operation"
	KindNotFound         ErrorKind = "not_found"
	KindAlreadyLiked     ErrorKind = "already_liked"
	// KindNotLiked is reserved; Unlike treats a missing like as success.
	KindNotLiked        ErrorKind = "not_liked"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindForbidden       ErrorKind = "forbidden"
	KindConflict        ErrorKind = "conflict"
	KindInternal        ErrorKind = "internal"
)

// Error is the error type returned by every service operation
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func ErrInvalidOperation(message string) *Error {
	return newError(KindInvalidOperation, message, nil)
}

func ErrNotFound(message string) *Error {
	return newError(KindNotFound, message, nil)
}

func ErrAlreadyLiked(postID string) *Error {
	return newError(KindAlreadyLiked, fmt.Sprintf("post %s already liked", postID), nil)
}

func ErrUnauthenticated(message string) *Error {
	return newError(KindUnauthenticated, message, nil)
}

func ErrForbidden(message string) *Error {
	return newError(KindForbidden, message, nil)
}

func ErrConflict(message string) *Error {
	return newError(KindConflict, message, nil)
}

// ErrInternal wraps a storage or infrastructure failure
func ErrInternal(message string, err error) *Error {
	return newError(KindInternal, message, err)
}

// orInternal passes service errors through and wraps anything else, such as
// a failed commit, as internal.
func orInternal(err error, message string) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	return ErrInternal(message, err)
}

// KindOf returns the kind of err, or KindInternal for foreign errors
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a service error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var svcErr *Error
	return errors.As(err, &svcErr) && svcErr.Kind == kind
}
