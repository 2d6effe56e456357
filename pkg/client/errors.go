package client

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a failure reported by the server. Kind is derived from the HTTP
// status so callers branch on the failure class rather than raw status codes.
type APIError struct {
	StatusCode int
	Kind       ErrorKind
	Code       string
	Message    string
	Details    string
}

// ErrorKind classifies an APIError.
type ErrorKind int

const (
	// KindAuthentication covers missing, invalid or expired credentials and
	// failed refreshes. This is the only kind the request pipeline retries.
	KindAuthentication ErrorKind = iota
	// KindAuthorization means the subject is valid but lacks ownership of
	// the target resource. Never retried.
	KindAuthorization
	// KindValidation means the request payload was rejected.
	KindValidation
	// KindNotFound means the target resource does not exist.
	KindNotFound
	// KindServer covers every other server-reported failure.
	KindServer
)

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("api error %d", e.StatusCode)
}

// TransportError means the request never produced a server response: network
// unreachable, timeout, or an unreadable reply. Never retried by the pipeline.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuthentication
	case http.StatusForbidden:
		return KindAuthorization
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindServer
	}
}

// IsAuthenticationError reports whether err is a credential failure.
func IsAuthenticationError(err error) bool {
	return errKindIs(err, KindAuthentication)
}

// IsAuthorizationError reports whether err is an ownership rejection.
func IsAuthorizationError(err error) bool {
	return errKindIs(err, KindAuthorization)
}

// IsNotFoundError reports whether err is a missing-resource failure.
func IsNotFoundError(err error) bool {
	return errKindIs(err, KindNotFound)
}

// IsValidationError reports whether err is a rejected payload.
func IsValidationError(err error) bool {
	return errKindIs(err, KindValidation)
}

func errKindIs(err error, kind ErrorKind) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	return apiErr.Kind == kind
}
