package ipc

import (
	"errors"
	"fmt"
)

// Code is the closed set of protocol error codes. Every failure a client can
// observe maps to exactly one of these.
type Code string

const (
	CodeNotFound         Code = "not_found"
	CodeInvalidRequest   Code = "invalid_request"
	CodeUnsupported      Code = "unsupported"
	CodeAmbiguous        Code = "ambiguous"
	CodePermissionDenied Code = "permission_denied"
	CodeTimeout          Code = "timeout"
	CodeInternal         Code = "internal"
)

// Error is a typed error carried verbatim on the wire inside error replies.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// asError coerces any error into a wire error. Untyped errors are unexpected
// collaborator failures and surface as internal rather than being swallowed.
func asError(err error) *Error {
	var coded *Error
	if errors.As(err, &coded) {
		return coded
	}
	return &Error{Code: CodeInternal, Message: err.Error()}
}
