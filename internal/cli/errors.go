package cli

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

// ConnectionFailure names why the payroll API could not be reached.
type ConnectionFailure string

const (
	FailureRefused     ConnectionFailure = "refused"
	FailureTimeout     ConnectionFailure = "timeout"
	FailureDNS         ConnectionFailure = "dns"
	FailureCertificate ConnectionFailure = "certificate"
	FailureUnreachable ConnectionFailure = "unreachable"
)

// Backend is what a command was talking to when a request failed.
type Backend struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// ConnectionError is a request that never got an HTTP response.
type ConnectionError struct {
	Backend Backend
	Failure ConnectionFailure
	Err     error
}

// NewConnectionError classifies err, the cause of a transport failure
// against backend. It returns nil for a nil error.
func NewConnectionError(backend Backend, err error) *ConnectionError {
	if err == nil {
		return nil
	}
	return &ConnectionError{Backend: backend, Failure: classifyFailure(err), Err: err}
}

func classifyFailure(err error) ConnectionFailure {
	var (
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostErr      x509.HostnameError
		invalidErr   x509.CertificateInvalidError
		dnsErr       *net.DNSError
		netErr       net.Error
	)
	switch {
	case errors.As(err, &verifyErr), errors.As(err, &authorityErr),
		errors.As(err, &hostErr), errors.As(err, &invalidErr):
		return FailureCertificate
	case errors.As(err, &dnsErr):
		return FailureDNS
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return FailureTimeout
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return FailureRefused
	default:
		return FailureUnreachable
	}
}

func (e *ConnectionError) Error() string {
	switch e.Failure {
	case FailureRefused:
		return fmt.Sprintf(`Cannot connect to %s: %v

Is the payroll API running? Check apiBaseURL in config.yaml or pass --api.`, e.Backend.BaseURL, e.Err)
	case FailureTimeout:
		if e.Backend.RequestTimeout > 0 {
			return fmt.Sprintf(`Request to %s got no response within %s

Raise requestTimeout in config.yaml if the backend is slow.`, e.Backend.BaseURL, e.Backend.RequestTimeout)
		}
		return fmt.Sprintf("Request to %s timed out: %v", e.Backend.BaseURL, e.Err)
	case FailureDNS:
		return fmt.Sprintf(`Cannot resolve the host of %s: %v

Check the host name in apiBaseURL.`, e.Backend.BaseURL, e.Err)
	case FailureCertificate:
		return fmt.Sprintf(`TLS certificate of %s is not trusted: %v

The backend may use a self-signed certificate, or apiBaseURL names a host
the certificate was not issued for.`, e.Backend.BaseURL, e.Err)
	default:
		return fmt.Sprintf("Cannot reach %s: %v", e.Backend.BaseURL, e.Err)
	}
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// AuthRequiredError indicates there is no session.
type AuthRequiredError struct {
	// Endpoint is the API base URL.
	Endpoint string
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf(`Not logged in to %s

To authenticate, run:
  payrollctl login --email <address>

To check the current session:
  payrollctl status`, e.Endpoint)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}

// AuthExpiredError indicates the session ended because it could not be
// refreshed.
type AuthExpiredError struct {
	// Endpoint is the API base URL.
	Endpoint string
	// Reason is the underlying error.
	Reason error
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf(`Session expired for %s: %v

To log in again, run:
  payrollctl login --email <address>`, e.Endpoint, e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthExpiredError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthExpiredError) Is(target error) bool {
	_, ok := target.(*AuthExpiredError)
	return ok
}

// AuthFailedError indicates the backend rejected the login.
type AuthFailedError struct {
	// Endpoint is the API base URL.
	Endpoint string
	// Reason is the underlying error.
	Reason error
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthFailedError) Error() string {
	return fmt.Sprintf(`Authentication failed for %s: %v

To retry, run:
  payrollctl login --email <address>`, e.Endpoint, e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}
