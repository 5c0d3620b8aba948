package runner

import "fmt"

const (
	CodeUsage      = "USAGE"
	CodeConfig     = "CONFIG"
	CodeNavigation = "NAVIGATION"
)

// Error is a run-level failure. Per-resource failures never surface here.
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
