package downloader

import (
	"errors"
	"fmt"
)

const (
	CodeTransport  = "TRANSPORT"
	CodeDirectory  = "DIRECTORY"
	CodeWrite      = "WRITE"
	CodeHTTPStatus = "HTTP_STATUS"
)

// Error is a typed per-resource download failure.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// ErrorCode returns the code of a download error, or "" for other errors.
func ErrorCode(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}
