// Package errs defines the control plane's error kinds. Handlers map a
// kind to an HTTP status in one place instead of sprinkling status codes
// through business logic, mirroring how gRPC handlers translate
// repository errors to codes.* at the boundary.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindUnauthorized
	KindForbidden
	KindRuntimeFailed
	KindTransient
)

// Error wraps an underlying cause with a Kind for HTTP status mapping.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) error      { return &Error{Kind: KindNotFound, Msg: msg} }
func Conflict(msg string) error      { return &Error{Kind: KindConflict, Msg: msg} }
func Validation(msg string) error    { return &Error{Kind: KindValidation, Msg: msg} }
func Unauthorized(msg string) error  { return &Error{Kind: KindUnauthorized, Msg: msg} }
func Forbidden(msg string) error     { return &Error{Kind: KindForbidden, Msg: msg} }

func RuntimeFailed(msg string, err error) error {
	return &Error{Kind: KindRuntimeFailed, Msg: msg, Err: err}
}

func Transient(msg string, err error) error {
	return &Error{Kind: KindTransient, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err, defaulting to KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps a Kind to the status code .
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRuntimeFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
