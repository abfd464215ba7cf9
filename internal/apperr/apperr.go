// Package apperr holds the error kinds returned by the services and their
// HTTP status mapping.
package apperr

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindAuthorNotFound
	KindStoreUnavailable
	KindTimeout
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindNotFound:
		return "NotFound"
	case KindForbidden:
		return "Forbidden"
	case KindAuthorNotFound:
		return "AuthorNotFound"
	case KindStoreUnavailable:
		return "StoreUnavailable"
	case KindTimeout:
		return "Timeout"
	case KindConflict:
		return "Conflict"
	}
	return "Unknown"
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

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Validation(msg string) *Error     { return New(KindValidation, msg) }
func NotFound(msg string) *Error       { return New(KindNotFound, msg) }
func Forbidden(msg string) *Error      { return New(KindForbidden, msg) }
func AuthorNotFound(msg string) *Error { return New(KindAuthorNotFound, msg) }
func Conflict(msg string) *Error       { return New(KindConflict, msg) }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FromStore classifies an error returned by gorm. notFound is the message
// used when the record is missing. Errors that already carry a kind pass
// through unchanged.
func FromStore(err error, notFound string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, gorm.ErrForeignKeyViolated):
		return &Error{Kind: KindNotFound, Message: notFound, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: "store operation timed out", Err: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Kind: KindConflict, Message: "duplicate record", Err: err}
	}
	return &Error{Kind: KindStoreUnavailable, Message: "store unavailable", Err: err}
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound, KindAuthorNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindTimeout:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// PublicMessage is the message safe to show to the caller. Wrapped store
// errors are not exposed.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Server error"
}
