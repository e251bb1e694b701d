package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so that the transport layer can map it to a
// status code without inspecting messages.
type Kind string

const (
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindPermissionDenied   Kind = "PERMISSION_DENIED"
	KindNotFound           Kind = "NOT_FOUND"
	KindAlreadyExists      Kind = "ALREADY_EXISTS"
	KindFailedPrecondition Kind = "FAILED_PRECONDITION"
	KindInvalidArgument    Kind = "INVALID_ARGUMENT"
	KindAborted            Kind = "ABORTED"
	KindGateway            Kind = "GATEWAY_ERROR"
	KindInternal           Kind = "INTERNAL"
)

// Error is the error type returned by every service in the application
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(format string, args ...interface{}) *Error {
	return newError(KindUnauthenticated, format, args...)
}

func PermissionDenied(format string, args ...interface{}) *Error {
	return newError(KindPermissionDenied, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func AlreadyExists(format string, args ...interface{}) *Error {
	return newError(KindAlreadyExists, format, args...)
}

func FailedPrecondition(format string, args ...interface{}) *Error {
	return newError(KindFailedPrecondition, format, args...)
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return newError(KindInvalidArgument, format, args...)
}

func Aborted(format string, args ...interface{}) *Error {
	return newError(KindAborted, format, args...)
}

// Gateway wraps a failure talking to the payment provider
func Gateway(err error, format string, args ...interface{}) *Error {
	e := newError(KindGateway, format, args...)
	e.Err = err
	return e
}

// Internal wraps an unexpected failure, usually from the store
func Internal(err error, format string, args ...interface{}) *Error {
	e := newError(KindInternal, format, args...)
	e.Err = err
	return e
}

// KindOf returns the kind of err, or KindInternal for foreign errors
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to its response status
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists, KindAborted:
		return http.StatusConflict
	case KindFailedPrecondition, KindInvalidArgument:
		return http.StatusBadRequest
	case KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to hand to clients
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Kind == KindInternal {
			return "internal server error"
		}
		return appErr.Message
	}
	return "internal server error"
}
