// Package errors attaches machine-readable codes to cosem errors.
//
// Library packages keep their own sentinel errors (bresenham.ErrOutOfRange,
// cosem.ErrViewNotFound, ...) and wrap them in an *Error so callers can
// branch on a [Code] without importing every package. The HTTP server turns
// codes into status codes with [HTTPStatus]; the CLI prints [Error.Error].
//
//	err := errors.Wrap(errors.ErrCodeViewNotFound, ErrViewNotFound, "%q in %s", name, id)
//	if errors.Is(err, errors.ErrCodeViewNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error category.
type Code string

const (
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidDataset Code = "INVALID_DATASET"
	ErrCodeInvalidSource  Code = "INVALID_SOURCE"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeSourceNotFound Code = "SOURCE_NOT_FOUND"
	ErrCodeViewNotFound   Code = "VIEW_NOT_FOUND"

	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
)

var statusByCode = map[Code]int{
	ErrCodeInvalidInput:   http.StatusBadRequest,
	ErrCodeInvalidDataset: http.StatusBadRequest,
	ErrCodeInvalidSource:  http.StatusBadRequest,
	ErrCodeInvalidFormat:  http.StatusBadRequest,
	ErrCodeInvalidPath:    http.StatusBadRequest,
	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodeSourceNotFound: http.StatusNotFound,
	ErrCodeViewNotFound:   http.StatusNotFound,
	ErrCodeNetwork:        http.StatusBadGateway,
	ErrCodeUnsupported:    http.StatusNotImplemented,
}

// Error is an error with a code. Cause, when set, is reachable through
// errors.Is and errors.As.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Cause.Error()
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an *Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// GetCode returns the code of the outermost *Error in err's chain, or ""
// when there is none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	return code != "" && GetCode(err) == code
}

// UserMessage returns the message of the outermost *Error without its
// cause, or err.Error() for uncoded errors.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps code to a response status; unknown codes are 500.
func HTTPStatus(code Code) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}
