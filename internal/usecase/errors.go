package usecase

import (
	"errors"
	"strings"
)

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorNotFound     ErrorCode = "NOT_FOUND"
	ErrorTurnInFlight ErrorCode = "TURN_IN_FLIGHT"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error is returned by every service in this package. Reason is a stable
// snake_case tag for logs and clients; Code decides the transport status.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("usecase: ")
	sb.WriteString(string(e.Code))
	if e.Reason != "" {
		sb.WriteString(" (" + e.Reason + ")")
	}
	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Internal reports whether the failure is on the service side rather than
// the caller's.
func (e *Error) Internal() bool {
	return e == nil || e.Code == ErrorInternal
}

// AsError finds a service error in err's chain.
func AsError(err error) (*Error, bool) {
	var ucErr *Error
	if !errors.As(err, &ucErr) {
		return nil, false
	}
	return ucErr, true
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
