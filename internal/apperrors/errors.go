package apperrors

import (
	"errors"
	"net/http"
)

// Kind groups errors by how they are reported to clients.
type Kind string

const (
	KindValidation      Kind = "validation_failed"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindInternal        Kind = "internal"
)

// Error is a sentinel error bound to a Kind.
// Compare with errors.Is; wrap with fmt.Errorf("...: %w", err).
type Error struct {
	kind Kind
	msg  string
}

func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Kind() Kind { return e.kind }

var (
	ErrValidation = New(KindValidation, "invalid request")

	ErrInvalidCredentials = New(KindUnauthenticated, "invalid credentials")
	ErrUnauthenticated    = New(KindUnauthenticated, "unauthenticated")
	ErrSessionRevoked     = New(KindUnauthenticated, "session revoked")

	ErrForbidden         = New(KindForbidden, "forbidden")
	ErrAccountTerminated = New(KindForbidden, "account terminated")

	ErrAccountNotFound = New(KindNotFound, "account not found")
	ErrCollegeNotFound = New(KindNotFound, "college not found")

	ErrInvalidOTP = New(KindValidation, "invalid or expired otp")

	ErrAccountExists = New(KindConflict, "account already exists")
	ErrCollegeExists = New(KindConflict, "college already exists")
)

// KindOf returns the Kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns a client safe message. Internal errors never leak their text.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return "internal server error"
}
