package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindInvalidReference
	KindConflict
	KindUpstream
	KindConfiguration
)

// Error is a domain error with a message that is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func Authentication(format string, args ...any) *Error {
	return newError(KindAuthentication, format, args...)
}

func Authorization(format string, args ...any) *Error {
	return newError(KindAuthorization, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func InvalidReference(format string, args ...any) *Error {
	return newError(KindInvalidReference, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func Configuration(format string, args ...any) *Error {
	return newError(KindConfiguration, format, args...)
}

// Upstream wraps a failure of an external collaborator such as the image host.
func Upstream(err error, message string) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// KindOf reports the kind of err, KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Response is the stable error body returned to clients.
type Response struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTP maps err to a status code and a client-safe body. Internal and
// upstream details never leave the process.
func HTTP(err error) (int, Response) {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, Response{Error: "internal server error", Code: "INTERNAL_ERROR"}
	}

	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest, Response{Error: e.Message, Code: "VALIDATION_ERROR"}
	case KindAuthentication:
		return http.StatusUnauthorized, Response{Error: e.Message, Code: "AUTHENTICATION_ERROR"}
	case KindAuthorization:
		return http.StatusForbidden, Response{Error: e.Message, Code: "AUTHORIZATION_ERROR"}
	case KindNotFound:
		return http.StatusNotFound, Response{Error: e.Message, Code: "NOT_FOUND"}
	case KindInvalidReference:
		return http.StatusBadRequest, Response{Error: e.Message, Code: "INVALID_REFERENCE"}
	case KindConflict:
		return http.StatusConflict, Response{Error: e.Message, Code: "CONFLICT"}
	case KindUpstream:
		return http.StatusBadGateway, Response{Error: e.Message, Code: "UPSTREAM_FAILURE"}
	default:
		return http.StatusInternalServerError, Response{Error: "internal server error", Code: "INTERNAL_ERROR"}
	}
}
