package logout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"payrollctl/internal/events"
	"payrollctl/internal/session"
	"payrollctl/pkg/auth"
	"payrollctl/pkg/logging"
)

// Reason says why a session ended.
type Reason string

const (
	// ReasonUserLogout is an explicit logout requested by the user.
	ReasonUserLogout Reason = "user_logout"

	// ReasonRefreshFailed means the refresh credential was rejected or the
	// refresh call failed.
	ReasonRefreshFailed Reason = "refresh_failed"

	// ReasonExternal means another process ended the shared session.
	ReasonExternal Reason = "external_logout"
)

// CredentialStore is the part of the credential store the cascade needs.
type CredentialStore interface {
	Get() (auth.Credential, bool)
	Clear(ctx context.Context) error
}

// SessionMachine is the part of the session state machine the cascade drives.
type SessionMachine interface {
	Current() session.State
	LoggedOut() error
	RefreshFailed() error
}

// Revoker invalidates the current refresh credential server-side.
type Revoker interface {
	Revoke(ctx context.Context) error
}

// Cascade ends the session. It is safe for concurrent use.
type Cascade struct {
	store   CredentialStore
	machine SessionMachine
	events  events.Publisher
	revoker Revoker

	mu sync.Mutex
}

// Option configures a Cascade.
type Option func(*Cascade)

// WithRevoker makes user-initiated logouts revoke the session server-side first.
func WithRevoker(r Revoker) Option {
	return func(c *Cascade) {
		c.revoker = r
	}
}

// WithEvents publishes a SessionEnded event on every effective logout.
func WithEvents(p events.Publisher) Option {
	return func(c *Cascade) {
		c.events = p
	}
}

// New returns a cascade over store and machine.
func New(store CredentialStore, machine SessionMachine, opts ...Option) *Cascade {
	c := &Cascade{store: store, machine: machine}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Logout clears the credential store, moves the session to Anonymous and
// publishes SessionEnded. When the session is already Anonymous with an
// empty store it does nothing, so calling it twice equals calling it once.
//
// For ReasonUserLogout a configured Revoker is called first. Its failure is
// logged and never prevents the local logout.
func (c *Cascade) Logout(ctx context.Context, reason Reason) error {
	if reason == ReasonUserLogout {
		c.revoke(ctx)
	}
	return c.end(ctx, reason)
}

// LogoutLocal is a user logout that leaves the server-side session alone.
func (c *Cascade) LogoutLocal(ctx context.Context) error {
	return c.end(ctx, ReasonUserLogout)
}

func (c *Cascade) end(ctx context.Context, reason Reason) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cred, hasCredential := c.store.Get()
	if !hasCredential && c.machine.Current() == session.Anonymous {
		logging.Debug("Logout", "Session already ended, nothing to do (%s)", reason)
		return nil
	}

	var errs []error
	// An external logout has already emptied the persister; clearing again
	// could delete a newer login written by the other process.
	if hasCredential || reason != ReasonExternal {
		if err := c.store.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to clear credential store: %w", err))
		}
	}
	if err := c.toAnonymous(); err != nil {
		errs = append(errs, err)
	}

	logging.Info("Logout", "Session for %s ended: %s", cred.Identity.Email, reason)

	if c.events != nil {
		ev := events.Event{Kind: events.SessionEnded, Subject: cred.Identity.Email, Reason: string(reason)}
		if err := c.events.Publish(ev); err != nil {
			logging.Warn("Logout", "Failed to publish %s: %v", ev, err)
		}
	}

	return errors.Join(errs...)
}

// revoke runs before the cascade lock is taken: the revoke request goes
// through the dispatcher and may itself end in a cascade.
func (c *Cascade) revoke(ctx context.Context) {
	if c.revoker == nil {
		return
	}
	if _, ok := c.store.Get(); !ok {
		return
	}
	if err := c.revoker.Revoke(ctx); err != nil {
		logging.Warn("Logout", "Server-side logout failed, continuing with local logout: %v", err)
		return
	}
	logging.Debug("Logout", "Server-side session revoked")
}

// toAnonymous moves the machine to Anonymous from whichever state it is in.
// The state can change under us (a request discovering expiry), so an
// illegal transition is retried against the fresh state.
func (c *Cascade) toAnonymous() error {
	for attempt := 0; attempt < 3; attempt++ {
		var err error
		switch c.machine.Current() {
		case session.Anonymous:
			return nil
		case session.Authenticated:
			err = c.machine.LoggedOut()
		case session.Refreshing:
			err = c.machine.RefreshFailed()
		}
		if err == nil {
			return nil
		}
		var terr *session.TransitionError
		if !errors.As(err, &terr) {
			return err
		}
	}
	return fmt.Errorf("session did not settle in %s", session.Anonymous)
}
