// Package autherror defines the structured error returned at the boundary of every
// authentication component. Callers match on Kind with errors.Is against the
// exported sentinels, or pull the full value out with As.
package autherror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an authentication failure.
type Kind string

const (
	KindConfiguration       Kind = "configuration_error"
	KindNetwork             Kind = "request_error"
	KindInvalidGrant        Kind = "invalid_grant"
	KindUnknownConnection   Kind = "unknown_connection"
	KindRateLimited         Kind = "too_many_attempts"
	KindLoginRequired       Kind = "login_required"
	KindInteractionRequired Kind = "interaction_required"
	KindConsentRequired     Kind = "consent_required"
	KindValidation          Kind = "invalid_token"
	KindTimeout             Kind = "timeout"
	KindNotFound            Kind = "not_found"
	KindForbidden           Kind = "forbidden"
	KindInvalidRequest      Kind = "invalid_request"
	KindServer              Kind = "server_error"
)

// Sentinels for errors.Is. Only the Kind is compared.
var (
	ErrConfiguration       = &Error{Kind: KindConfiguration}
	ErrNetwork             = &Error{Kind: KindNetwork}
	ErrInvalidGrant        = &Error{Kind: KindInvalidGrant}
	ErrUnknownConnection   = &Error{Kind: KindUnknownConnection}
	ErrRateLimited         = &Error{Kind: KindRateLimited}
	ErrLoginRequired       = &Error{Kind: KindLoginRequired}
	ErrInteractionRequired = &Error{Kind: KindInteractionRequired}
	ErrConsentRequired     = &Error{Kind: KindConsentRequired}
	ErrValidation          = &Error{Kind: KindValidation}
	ErrTimeout             = &Error{Kind: KindTimeout}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrInvalidRequest      = &Error{Kind: KindInvalidRequest}
	ErrServer              = &Error{Kind: KindServer}
)

// Error is the tagged union surfaced to callers.
type Error struct {
	Kind        Kind   // Machine readable classification
	Code        string // Raw error code reported by the server, if any
	Description string // Human readable description
	StatusCode  int    // HTTP status, zero when the error did not come from an HTTP response
	State       string // Transaction state, set for errors parsed from a redirect fragment
	Err         error  // Underlying cause
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Code != "" && e.Code != string(e.Kind) {
		b.WriteString(" (")
		b.WriteString(e.Code)
		b.WriteString(")")
	}
	if e.Description != "" {
		b.WriteString(": ")
		b.WriteString(e.Description)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, description string) *Error {
	return &Error{Kind: kind, Code: string(kind), Description: description}
}

// Newf creates an error of the given kind with a formatted description.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap attaches a cause to a new error of the given kind. A cause that is already
// an *Error is returned unchanged so classification done closer to the fault wins.
func Wrap(kind Kind, err error, description string) *Error {
	if existing, ok := As(err); ok {
		return existing
	}
	return &Error{Kind: kind, Code: string(kind), Description: description, Err: err}
}

// Configuration is shorthand for a configuration error.
func Configuration(format string, args ...any) *Error {
	return Newf(KindConfiguration, format, args...)
}

// Validation is shorthand for a token validation error.
func Validation(format string, args ...any) *Error {
	return Newf(KindValidation, format, args...)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or an empty Kind when err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// FromOAuth classifies an OAuth2/OIDC error response. statusCode is zero for
// errors that arrived through a redirect rather than an HTTP response.
func FromOAuth(statusCode int, code, description string) *Error {
	return &Error{
		Kind:        classify(statusCode, code),
		Code:        code,
		Description: description,
		StatusCode:  statusCode,
	}
}

func classify(statusCode int, code string) Kind {
	switch code {
	case "invalid_grant", "invalid_user_password", "wrong_credentials":
		return KindInvalidGrant
	case "invalid_realm", "unknown_connection", "bad.connection", "connection_not_found":
		return KindUnknownConnection
	case "too_many_attempts", "too_many_requests":
		return KindRateLimited
	case "login_required":
		return KindLoginRequired
	case "interaction_required", "account_selection_required":
		return KindInteractionRequired
	case "consent_required":
		return KindConsentRequired
	case "invalid_token":
		return KindValidation
	case "timeout":
		return KindTimeout
	case "access_denied", "unauthorized", "unauthorized_client":
		return KindForbidden
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return KindRateLimited
	case statusCode == http.StatusNotFound:
		return KindNotFound
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return KindForbidden
	case statusCode == http.StatusBadRequest, statusCode == http.StatusUnprocessableEntity, statusCode == http.StatusConflict:
		return KindInvalidRequest
	}
	return KindServer
}
