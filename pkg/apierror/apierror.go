package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure that is safe to report to the client.
type Kind int

const (
	KindUnknown Kind = iota
	KindCredentials
	KindNotFound
	KindConflict
	KindFormat
	KindTokenExpired
	KindTokenInvalid
)

func (k Kind) String() string {
	switch k {
	case KindCredentials:
		return "credentials"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindFormat:
		return "format"
	case KindTokenExpired:
		return "token_expired"
	case KindTokenInvalid:
		return "token_invalid"
	default:
		return "internal"
	}
}

// HTTPStatus is the transport status for the kind. Anything unclassified is a 500.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindCredentials, KindTokenExpired:
		return http.StatusUnauthorized
	case KindFormat, KindTokenInvalid:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Credentials(message string) *Error {
	return New(KindCredentials, message, nil)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message, nil)
}

func Conflict(message string, err error) *Error {
	return New(KindConflict, message, err)
}

func Format(message string) *Error {
	return New(KindFormat, message, nil)
}

func TokenExpired(message string, err error) *Error {
	return New(KindTokenExpired, message, err)
}

func TokenInvalid(message string, err error) *Error {
	return New(KindTokenInvalid, message, err)
}

// KindOf returns the kind of the first *Error in the chain, or KindUnknown.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
