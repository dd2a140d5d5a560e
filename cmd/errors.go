package cmd

import (
	"context"
	"errors"
	"net/url"

	"payrollctl/internal/app"
	"payrollctl/internal/authapi"
	"payrollctl/internal/cli"
	"payrollctl/internal/dispatcher"
	"payrollctl/internal/refresh"
)

// backendOf describes the API an application talks to, for error messages.
func backendOf(application *app.Application) cli.Backend {
	return cli.Backend{BaseURL: application.APIBaseURL(), RequestTimeout: application.RequestTimeout()}
}

// explainError turns pipeline errors into CLI errors with guidance and a
// matching exit code. Anything it does not recognise is returned unchanged.
func explainError(err error, backend cli.Backend) error {
	endpoint := backend.BaseURL
	if err == nil {
		return nil
	}

	var (
		authErr      *dispatcher.AuthError
		refreshErr   *refresh.RefreshError
		transportErr *dispatcher.TransportError
		urlErr       *url.Error
	)
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, refresh.ErrNoRefreshToken), errors.Is(err, refresh.ErrSessionEnded):
		return &cli.AuthRequiredError{Endpoint: endpoint}
	case errors.As(err, &refreshErr):
		return &cli.AuthExpiredError{Endpoint: endpoint, Reason: refreshErr.Cause}
	case errors.As(err, &authErr):
		return &cli.AuthExpiredError{Endpoint: endpoint, Reason: err}
	case errors.As(err, &transportErr):
		return cli.NewConnectionError(backend, transportErr.Err)
	case errors.As(err, &urlErr):
		return cli.NewConnectionError(backend, urlErr)
	}
	return err
}

// explainLoginError is explainError for the login request, where a 401
// means wrong credentials rather than an expired session.
func explainLoginError(err error, backend cli.Backend) error {
	var apiErr *authapi.APIError
	if errors.As(err, &apiErr) && (apiErr.Unauthorized() || apiErr.StatusCode == 400) {
		return &cli.AuthFailedError{Endpoint: backend.BaseURL, Reason: err}
	}
	return explainError(err, backend)
}
