package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur during a run
type ErrorType string

const (
	ErrorTypeInput       ErrorType = "input"
	ErrorTypeBrowser     ErrorType = "browser"
	ErrorTypeNavigation  ErrorType = "navigation"
	ErrorTypeStatus      ErrorType = "status"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRead        ErrorType = "read"
	ErrorTypeUnsupported ErrorType = "unsupported"
	ErrorTypeTooLarge    ErrorType = "too_large"
	ErrorTypeArchive     ErrorType = "archive"
	ErrorTypeStorage     ErrorType = "storage"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error carries a typed failure with optional HTTP code and source URL
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	URL     string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap creates a typed error around a cause
func Wrap(t ErrorType, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// TypeOf returns the error type of err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err is a typed error of type t
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsFatal checks if an error type aborts the whole run.
// Per-item fetch failures are recoverable; everything before and after the
// download stage is not.
func IsFatal(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeStatus, ErrorTypeNetwork, ErrorTypeRead, ErrorTypeUnsupported, ErrorTypeTooLarge:
		return false
	default:
		return true
	}
}
