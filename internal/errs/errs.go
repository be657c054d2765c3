package errs

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies a failure so callers can map it to a response without
// parsing messages.
type Kind string

const (
	KindValidation               Kind = "validation"
	KindNotFound                 Kind = "not_found"
	KindInvalidState             Kind = "invalid_state"
	KindInsufficientAvailability Kind = "insufficient_availability"
	KindConflict                 Kind = "conflict"
	KindForbidden                Kind = "forbidden"
	KindAlreadyReturned          Kind = "already_returned"
	KindInternal                 Kind = "internal"
)

// Error is a structured failure carrying a kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new structured error
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a new structured error with a formatted message
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain. Errors without a kind are
// reported as KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether any error in the chain carries the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the HTTP status the API layer should return
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState, KindConflict, KindAlreadyReturned:
		return http.StatusConflict
	case KindInsufficientAvailability:
		return http.StatusUnprocessableEntity
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
