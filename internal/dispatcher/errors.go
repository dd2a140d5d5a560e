package dispatcher

import (
	"errors"
	"fmt"
	"net/http"

	"payrollctl/pkg/auth"
)

// ErrUnauthenticated matches every *AuthError with errors.Is.
var ErrUnauthenticated = errors.New("unauthenticated")

// AuthError is returned when a request stays unauthenticated: either the
// refresh that should have fixed a 401 failed, or the retried request was
// rejected again.
type AuthError struct {
	Method string
	URL    string

	// Retried is true when the request was already resent with a refreshed
	// credential and still got 401.
	Retried bool

	// Challenge is the parsed WWW-Authenticate header of the last 401, if any.
	Challenge *auth.Challenge

	// Cause is the refresh failure, if that is why the request was not retried.
	Cause error
}

func (e *AuthError) Error() string {
	switch {
	case e.Retried:
		return fmt.Sprintf("%s %s: still unauthorized after credential refresh", e.Method, e.URL)
	case e.Cause != nil:
		return fmt.Sprintf("%s %s: unauthorized: %v", e.Method, e.URL, e.Cause)
	default:
		return fmt.Sprintf("%s %s: unauthorized", e.Method, e.URL)
	}
}

func (e *AuthError) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, ErrUnauthenticated) hold.
func (e *AuthError) Is(target error) bool { return target == ErrUnauthenticated }

// ForbiddenError is a 403: the credential is valid but lacks permission.
type ForbiddenError struct {
	Method string
	URL    string
	Detail string
}

func (e *ForbiddenError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: forbidden: %s", e.Method, e.URL, e.Detail)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, http.StatusText(http.StatusForbidden))
}

// TransportError is a failure to get any HTTP response at all.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
