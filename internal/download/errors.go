package download

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of download errors.
type ErrorType int

const (
	// ErrorNetwork means the stream could not be opened or reading it failed.
	ErrorNetwork ErrorType = iota

	// ErrorIO means writing to the local file system failed.
	ErrorIO

	// ErrorIncomplete means fewer or more bytes arrived than the server
	// declared in Content-Length.
	ErrorIncomplete

	// ErrorUnsupportedFormat means the content is not what the stream
	// claimed to be, or uses a feature the downloader cannot handle.
	ErrorUnsupportedFormat

	// ErrorCancelled means the context was cancelled mid-download.
	ErrorCancelled
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorNetwork:
		return "network"
	case ErrorIO:
		return "io"
	case ErrorIncomplete:
		return "incomplete"
	case ErrorUnsupportedFormat:
		return "unsupported_format"
	case ErrorCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is a structured download failure. When it is returned no file has
// been written at the target path.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsType reports whether err is an *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var de *Error
	return errors.As(err, &de) && de.Type == t
}

func newError(t ErrorType, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}
