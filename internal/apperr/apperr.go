// Package apperr is the error contract shared by the service layers and the
// transports. Lower layers return sentinel or wrapped errors; services wrap
// them in *Error with a code the transports map to a status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeInternal        Code = "INTERNAL"
)

// Sentinels returned by the storage layer.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateMatch = errors.New("match already exists for candidate and job")
)

// Error carries a code, the failing operation and a message safe to show
// to API clients.
type Error struct {
	Code    Code
	Op      string // e.g. "lifecycle.Act"
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error.
func E(code Code, op, msg string, err error) error {
	return &Error{Code: code, Op: op, Message: msg, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain. Bare storage
// sentinels map to their natural code; anything else is CodeInternal.
func CodeOf(err error) Code {
	var ae *Error
	switch {
	case errors.As(err, &ae):
		return ae.Code
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrDuplicateMatch):
		return CodeConflict
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Message returns the client-safe message of err.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return "internal error"
}

// HTTPStatus maps err to an HTTP status code.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// GRPCCode maps err to a gRPC status code.
func GRPCCode(err error) codes.Code {
	switch CodeOf(err) {
	case CodeInvalidArgument:
		return codes.InvalidArgument
	case CodeNotFound:
		return codes.NotFound
	case CodeConflict:
		return codes.AlreadyExists
	case CodeUnavailable:
		return codes.Unavailable
	}
	return codes.Internal
}
