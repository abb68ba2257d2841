// Package apperr defines the error taxonomy shared by the domain services and
// the HTTP layer. Services return *Error values; handlers translate the Kind
// into a status code and a stable error code.
package apperr

import (
	"errors"
	"net/http"

	"lms/internal/constants"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindAuth
	KindUpstreamMedia
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindUpstreamMedia:
		return "upstream_media"
	case KindPersistence:
		return "persistence"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func Validation(message string) *Error {
	return New(KindValidation, message, nil)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message, nil)
}

func Conflict(message string) *Error {
	return New(KindConflict, message, nil)
}

func Auth(message string) *Error {
	return New(KindAuth, message, nil)
}

func UpstreamMedia(message string, cause error) *Error {
	return New(KindUpstreamMedia, message, cause)
}

func Persistence(message string, cause error) *Error {
	return New(KindPersistence, message, cause)
}

func Internal(message string, cause error) *Error {
	return New(KindInternal, message, cause)
}

// KindOf reports the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the client-safe message for err. Persistence and internal
// failures never expose their cause.
func MessageOf(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return "An internal error occurred"
	}
	switch appErr.Kind {
	case KindPersistence, KindInternal:
		if appErr.Message == "" {
			return "An internal error occurred"
		}
	}
	return appErr.Message
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindConflict, KindAuth:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func Code(kind Kind) string {
	switch kind {
	case KindValidation:
		return constants.ErrCodeInvalidRequest
	case KindNotFound:
		return constants.ErrCodeNotFound
	case KindConflict:
		return constants.ErrCodeConflict
	case KindAuth:
		return constants.ErrCodeAuthFailed
	case KindUpstreamMedia:
		return constants.ErrCodeMediaUpload
	case KindPersistence:
		return constants.ErrCodePersistence
	default:
		return constants.ErrCodeInternal
	}
}
