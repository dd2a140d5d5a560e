package app

import (
	"context"
	"errors"
	"fmt"

	"payrollctl/internal/credstore"
	"payrollctl/internal/logout"
	"payrollctl/internal/session"
	"payrollctl/pkg/auth"
	"payrollctl/pkg/logging"
)

// Login authenticates with email and password and starts a session. An
// existing session is logged out first.
func (a *Application) Login(ctx context.Context, email string, password auth.RedactedToken) (auth.Profile, error) {
	s := a.services

	if _, ok := s.Store.Get(); ok || s.Machine.Current() != session.Anonymous {
		logging.Info("Session", "Replacing existing session")
		if err := s.Cascade.Logout(ctx, logout.ReasonUserLogout); err != nil {
			return auth.Profile{}, fmt.Errorf("failed to end previous session: %w", err)
		}
	}

	cred, err := s.Tokens.Login(ctx, email, password)
	if err != nil {
		return auth.Profile{}, err
	}

	if err := s.Store.Set(ctx, cred); err != nil {
		var persistErr *credstore.PersistError
		if !errors.As(err, &persistErr) {
			return auth.Profile{}, err
		}
		logging.Warn("Session", "Logged in, but the session will not survive this process: %v", err)
	}
	if err := s.Machine.LoginSucceeded(); err != nil {
		return auth.Profile{}, err
	}
	return cred.Identity, nil
}

// Logout ends the session. Unless local is set the server-side session is
// revoked as well.
func (a *Application) Logout(ctx context.Context, local bool) error {
	if local {
		return a.services.Cascade.LogoutLocal(ctx)
	}
	return a.services.Cascade.Logout(ctx, logout.ReasonUserLogout)
}

// Whoami asks the backend who the current credential belongs to.
func (a *Application) Whoami(ctx context.Context) (auth.Profile, error) {
	return a.services.Account.Me(ctx)
}

// ForceRefresh runs one refresh episode regardless of expiry.
func (a *Application) ForceRefresh(ctx context.Context) (auth.Credential, error) {
	cred, _ := a.services.Store.Get()
	return a.services.Coordinator.Refresh(ctx, cred.AccessToken)
}

// Status describes the local session without contacting the backend.
func (a *Application) Status() auth.StatusResponse {
	s := a.services
	cred, ok := s.Store.Get()
	stats := s.Coordinator.Stats()

	status := auth.StatusResponse{
		State:         s.Machine.Current().String(),
		Authenticated: ok,
		Backend:       s.Store.Backend(),
		APIBaseURL:    s.apiBaseURL,
		Refresh: &auth.RefreshStats{
			Episodes:     stats.Episodes,
			NetworkCalls: stats.NetworkCalls,
			SharedWaits:  stats.SharedWaits,
			Shortcuts:    stats.Shortcuts,
			Failures:     stats.Failures,
		},
	}
	if !ok {
		return status
	}

	status.User = cred.Identity.Email
	status.Role = cred.Identity.Role
	if !cred.IssuedAt.IsZero() {
		issued := cred.IssuedAt
		status.IssuedAt = &issued
	}
	if !cred.ExpiresAt.IsZero() {
		expires := cred.ExpiresAt
		status.ExpiresAt = &expires
	}
	return status
}
