package soundcloud

import (
	"errors"
	"fmt"
)

// ErrTokenUnavailable is returned when no client_id could be discovered or
// every discovered one was rejected by the API. Nothing else can proceed
// without a token, so callers treat it as fatal.
var ErrTokenUnavailable = errors.New("soundcloud client_id unavailable")

// ResolutionKind classifies why a resource could not be resolved.
type ResolutionKind int

const (
	// NotFound means the URL does not point at an existing public resource.
	NotFound ResolutionKind = iota

	// Unplayable means the resource exists but offers no usable stream:
	// geo-blocked, taken down, preview-only or no acceptable transcoding.
	Unplayable

	// NetworkError means the API could not be reached or answered with
	// something other than a definite rejection.
	NetworkError

	// Unsupported means the URL resolved to a kind the downloader does not
	// handle, such as a user profile.
	Unsupported
)

// String returns the snake_case name of the kind.
func (k ResolutionKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Unplayable:
		return "unplayable"
	case NetworkError:
		return "network_error"
	case Unsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ResolutionError is returned by the resolver for any failure that concerns
// a single resource.
type ResolutionError struct {
	Kind    ResolutionKind
	URL     string
	Message string
	Cause   error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.URL != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.URL)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is a *ResolutionError of the given kind.
func IsKind(err error, kind ResolutionKind) bool {
	var re *ResolutionError
	return errors.As(err, &re) && re.Kind == kind
}

func newResolutionError(kind ResolutionKind, url, message string, cause error) *ResolutionError {
	return &ResolutionError{Kind: kind, URL: url, Message: message, Cause: cause}
}
