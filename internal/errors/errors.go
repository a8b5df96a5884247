// internal/errors/errors.go - Typed error kinds shared by the scraping pipeline
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind categorizes a failure so callers can map it to a response or exit code
type Kind string

const (
	KindAuth               Kind = "AUTH_FAILED"
	KindValidation         Kind = "VALIDATION_FAILED"
	KindConfig             Kind = "INVALID_CONFIG"
	KindPoolExhausted      Kind = "POOL_EXHAUSTED"
	KindPoolClosed         Kind = "POOL_CLOSED"
	KindResolutionTimeout  Kind = "RESOLUTION_TIMEOUT"
	KindResolutionNotFound Kind = "RESOLUTION_NOT_FOUND"
	KindBrowser            Kind = "BROWSER_FAILED"
	KindFetch              Kind = "FETCH_FAILED"
	KindParse              Kind = "PARSE_FAILED"
	KindInternal           Kind = "INTERNAL"
)

// Error is the error type returned across package boundaries
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error renders "op: message: cause", skipping empty parts
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err == nil {
		msg = string(e.Kind)
	}

	out := msg
	if e.Err != nil {
		if out != "" {
			out += ": "
		}
		out += e.Err.Error()
	}
	if e.Op != "" {
		out = e.Op + ": " + out
	}
	return out
}

// Unwrap exposes the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind so that errors.Is(err, &Error{Kind: k}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// New creates an error of the given kind
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf creates an error of the given kind with a formatted message
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and operation to err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether any *Error in err's chain has the given kind
func IsKind(err error, kind Kind) bool {
	return stderrors.Is(err, &Error{Kind: kind})
}

// HTTPStatus maps a kind to the status code the API answers with
func HTTPStatus(kind Kind) int {
	switch kind {
	case "":
		return http.StatusOK
	case KindAuth:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode returns the process exit code for a startup failure
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch KindOf(err) {
	case KindConfig:
		return 2 // Configuration error
	case KindFetch, KindResolutionTimeout:
		return 3 // Network error
	case KindParse:
		return 4 // Parsing error
	case KindValidation:
		return 6
	case KindAuth:
		return 8
	case KindBrowser, KindPoolClosed, KindPoolExhausted:
		return 9 // Browser could not be launched
	default:
		return 1
	}
}
