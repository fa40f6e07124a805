package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for callers and for the HTTP layer.
type Kind string

const (
	KindNotFound            Kind = "NotFound"
	KindUnauthorized        Kind = "Unauthorized"
	KindValidation          Kind = "ValidationError"
	KindConflict            Kind = "Conflict"
	KindUploadFailure       Kind = "UploadFailure"
	KindEmailDeliveryFailed Kind = "EmailDeliveryFailed"
	KindPathConflict        Kind = "PathConflict"
	KindUnexpected          Kind = "Unexpected"
)

// Error carries a kind and a message that is safe to show to the client.
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

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and client message to an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }
func Validation(msg string) *Error   { return New(KindValidation, msg) }
func Conflict(msg string) *Error     { return New(KindConflict, msg) }

// KindOf reports the kind of err. Errors that carry no kind are Unexpected.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnexpected
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the client-facing message for err. Unexpected faults are
// reported generically.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != KindUnexpected {
		return ae.Message
	}
	return "Internal server error"
}

var statusByKind = map[Kind]int{
	KindNotFound:            http.StatusNotFound,
	KindUnauthorized:        http.StatusForbidden,
	KindValidation:          http.StatusBadRequest,
	KindPathConflict:        http.StatusBadRequest,
	KindConflict:            http.StatusConflict,
	KindUploadFailure:       http.StatusBadGateway,
	KindEmailDeliveryFailed: http.StatusBadGateway,
	KindUnexpected:          http.StatusInternalServerError,
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	if s, ok := statusByKind[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}
