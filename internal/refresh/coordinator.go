package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"payrollctl/internal/credstore"
	"payrollctl/internal/events"
	"payrollctl/internal/logout"
	"payrollctl/pkg/auth"
	"payrollctl/pkg/logging"
)

// DefaultTimeout bounds one refresh network call.
const DefaultTimeout = 30 * time.Second

const flightKey = "refresh"

// CredentialStore is the part of the credential store the coordinator needs.
type CredentialStore interface {
	Get() (auth.Credential, bool)
	Replace(ctx context.Context, expectedRefresh string, cred auth.Credential) error
}

// SessionMachine is the part of the session state machine the coordinator drives.
type SessionMachine interface {
	ExpiryDetected() error
	RefreshSucceeded() error
}

// TokenRefresher exchanges a refresh token for a new credential.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (auth.Credential, error)
}

// SessionEnder runs the logout cascade.
type SessionEnder interface {
	Logout(ctx context.Context, reason logout.Reason) error
}

// Stats counts coordinator activity since creation.
type Stats struct {
	// Episodes is the number of refresh episodes started.
	Episodes int64
	// NetworkCalls is the number of calls made to the refresh endpoint.
	NetworkCalls int64
	// SharedWaits is the number of callers that joined an episode another
	// caller had started.
	SharedWaits int64
	// Shortcuts is the number of callers served by an already refreshed credential.
	Shortcuts int64
	// Failures is the number of failed episodes.
	Failures int64
}

// Coordinator runs refresh episodes. It is safe for concurrent use.
type Coordinator struct {
	store     CredentialStore
	machine   SessionMachine
	refresher TokenRefresher
	ender     SessionEnder
	events    events.Publisher
	timeout   time.Duration

	group singleflight.Group

	joined       atomic.Int64
	leaders      atomic.Int64
	episodes     atomic.Int64
	networkCalls atomic.Int64
	shortcuts    atomic.Int64
	failures     atomic.Int64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithEvents publishes CredentialRefreshed after every successful episode.
func WithEvents(p events.Publisher) Option {
	return func(c *Coordinator) {
		c.events = p
	}
}

// New returns a coordinator. ender is invoked on every failed episode.
func New(store CredentialStore, machine SessionMachine, refresher TokenRefresher, ender SessionEnder, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		machine:   machine,
		refresher: refresher,
		ender:     ender,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh returns a credential that supersedes rejectedAccessToken.
//
// If the store already holds a different access token, that credential is
// returned at once. Otherwise the caller joins the in-flight episode or
// starts one. ctx only bounds this caller's wait.
func (c *Coordinator) Refresh(ctx context.Context, rejectedAccessToken string) (auth.Credential, error) {
	if cred, ok := c.superseded(rejectedAccessToken); ok {
		c.shortcuts.Add(1)
		return cred, nil
	}

	c.joined.Add(1)
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		return c.runEpisode(ctx, rejectedAccessToken)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return auth.Credential{}, res.Err
		}
		return res.Val.(auth.Credential), nil
	case <-ctx.Done():
		return auth.Credential{}, ctx.Err()
	}
}

// Stats returns a snapshot of the counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Episodes:     c.episodes.Load(),
		NetworkCalls: c.networkCalls.Load(),
		SharedWaits:  c.joined.Load() - c.leaders.Load(),
		Shortcuts:    c.shortcuts.Load(),
		Failures:     c.failures.Load(),
	}
}

func (c *Coordinator) superseded(rejectedAccessToken string) (auth.Credential, bool) {
	cur, ok := c.store.Get()
	if !ok || cur.AccessToken == rejectedAccessToken {
		return auth.Credential{}, false
	}
	return cur, true
}

// runEpisode is executed by exactly one caller per episode.
func (c *Coordinator) runEpisode(callerCtx context.Context, rejectedAccessToken string) (auth.Credential, error) {
	c.leaders.Add(1)

	// An episode may have finished between the caller's check and DoChan.
	if cred, ok := c.superseded(rejectedAccessToken); ok {
		c.shortcuts.Add(1)
		return cred, nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(callerCtx), c.timeout)
	defer cancel()

	// A request sent without a session was rejected: nothing to refresh.
	// The cascade is a no-op unless the state still claims a session.
	cur, ok := c.store.Get()
	if !ok || cur.RefreshToken == "" {
		logging.Debug("Refresh", "No refresh token held, request stays unauthenticated")
		if err := c.ender.Logout(ctx, logout.ReasonRefreshFailed); err != nil {
			logging.Warn("Refresh", "Resetting session without credential was incomplete: %v", err)
		}
		return auth.Credential{}, &RefreshError{Cause: ErrNoRefreshToken}
	}

	c.episodes.Add(1)

	if err := c.machine.ExpiryDetected(); err != nil {
		logging.Debug("Refresh", "Expiry detected outside Authenticated state: %v", err)
	}

	logging.Debug("Refresh", "Refreshing credential for %s", cur.Identity.Email)
	c.networkCalls.Add(1)
	next, err := c.refresher.Refresh(ctx, cur.RefreshToken)
	if err == nil && !next.Complete() {
		err = ErrIncompleteResponse
	}
	if err != nil {
		return auth.Credential{}, c.fail(ctx, err)
	}
	if next.Identity.IsZero() {
		next.Identity = cur.Identity
	}

	err = c.store.Replace(ctx, cur.RefreshToken, next)
	var perr *credstore.PersistError
	switch {
	case err == nil:
	case errors.As(err, &perr):
		logging.Warn("Refresh", "Refreshed credential is held in memory only: %v", err)
	case errors.Is(err, credstore.ErrCredentialChanged):
		if latest, ok := c.store.Get(); ok {
			logging.Info("Refresh", "Credential was replaced during refresh, using the newer one")
			c.settle()
			return latest, nil
		}
		c.failures.Add(1)
		logging.Info("Refresh", "Session ended while refresh was in flight")
		return auth.Credential{}, &RefreshError{Cause: ErrSessionEnded}
	default:
		return auth.Credential{}, c.fail(ctx, err)
	}

	c.settle()
	logging.Info("Refresh", "Credential refreshed for %s", next.Identity.Email)

	if c.events != nil {
		ev := events.Event{Kind: events.CredentialRefreshed, Subject: next.Identity.Email}
		if err := c.events.Publish(ev); err != nil {
			logging.Warn("Refresh", "Failed to publish %s: %v", ev, err)
		}
	}
	return next, nil
}

func (c *Coordinator) settle() {
	if err := c.machine.RefreshSucceeded(); err != nil {
		logging.Debug("Refresh", "Session not in Refreshing state after refresh: %v", err)
	}
}

// fail ends the session and returns the error shared by every waiter.
func (c *Coordinator) fail(ctx context.Context, cause error) error {
	c.failures.Add(1)
	logging.Error("Refresh", cause, "Credential refresh failed, ending session")

	if err := c.ender.Logout(ctx, logout.ReasonRefreshFailed); err != nil {
		logging.Error("Refresh", err, "Logout after failed refresh was incomplete")
	}
	return &RefreshError{Cause: cause}
}
