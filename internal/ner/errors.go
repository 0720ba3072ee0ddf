package ner

import (
	"errors"
	"fmt"
)

// Code classifies a recognition failure. Callers branch on the code,
// never on the message text.
type Code string

const (
	CodeContentTooLarge Code = "CONTENT_TOO_LARGE"
	CodeTimeout         Code = "TIMEOUT"
	CodeIOError         Code = "IO_ERROR"
	CodeInvalidEncoding Code = "INVALID_ENCODING"
)

// Error is a terminal recognition failure. It is never accompanied by a
// partial Result.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapError(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the recognition code from err, or "" if err is not a
// recognition error.
func CodeOf(err error) Code {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Code
	}
	return ""
}
