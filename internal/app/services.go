package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"payrollctl/internal/authapi"
	"payrollctl/internal/config"
	"payrollctl/internal/credstore"
	"payrollctl/internal/dispatcher"
	"payrollctl/internal/events"
	"payrollctl/internal/logout"
	"payrollctl/internal/payroll"
	"payrollctl/internal/refresh"
	"payrollctl/internal/session"
	"payrollctl/pkg/logging"
)

// externalSyncTimeout bounds one reaction to a change made by another process.
const externalSyncTimeout = 10 * time.Second

// Services holds the initialized credential pipeline and API clients.
//
// Dependencies run one way: the dispatcher refreshes through the
// coordinator, the coordinator ends sessions through the cascade, and the
// cascade revokes through the account client, which sends through the
// dispatcher. The last edge is bound after construction.
type Services struct {
	Store       *credstore.Store
	Machine     *session.Machine
	Bus         *events.Bus
	Cascade     *logout.Cascade
	Coordinator *refresh.Coordinator
	Dispatcher  *dispatcher.Dispatcher
	Tokens      *authapi.TokenClient
	Account     *authapi.AccountClient
	Payroll     *payroll.Client

	apiBaseURL  string
	watcher     *credstore.Watcher
	redis       redis.UniversalClient
	unsubscribe func()
}

// accountRevoker revokes through an account client that is built after the
// cascade that needs it.
type accountRevoker struct {
	account *authapi.AccountClient
}

func (r *accountRevoker) Revoke(ctx context.Context) error {
	if r.account == nil {
		return errors.New("account client not initialized")
	}
	return r.account.Revoke(ctx)
}

// InitializeServices creates the components in dependency order and restores
// a persisted session.
func InitializeServices(ctx context.Context, cfg *Config) (*Services, error) {
	pc := cfg.PayrollConfig
	s := &Services{apiBaseURL: pc.APIBaseURL}

	persister, err := s.newPersister(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var busOpts []events.BusOption
	if s.redis != nil {
		var forwarder message.Publisher
		forwarder, err = events.NewRedisStreamPublisher(s.redis)
		if err != nil {
			_ = s.redis.Close()
			return nil, fmt.Errorf("failed to create event forwarder: %w", err)
		}
		busOpts = append(busOpts, events.WithForwarder(forwarder))
	}

	s.Store = credstore.New(persister)
	s.Machine = session.NewMachine()
	s.Bus = events.NewBus(busOpts...)
	s.Tokens = authapi.NewTokenClient(pc.APIBaseURL)

	revoker := &accountRevoker{}
	s.Cascade = logout.New(s.Store, s.Machine, logout.WithRevoker(revoker), logout.WithEvents(s.Bus))
	s.Coordinator = refresh.New(s.Store, s.Machine, s.Tokens, s.Cascade,
		refresh.WithTimeout(pc.RefreshTimeout), refresh.WithEvents(s.Bus))
	s.Dispatcher = dispatcher.New(s.Store, s.Coordinator, dispatcher.WithTimeout(pc.RequestTimeout), dispatcher.WithExpiryMargin(pc.ExpiryMargin))
	s.Account = authapi.NewAccountClient(pc.APIBaseURL, s.Dispatcher)
	revoker.account = s.Account
	s.Payroll = payroll.NewClient(pc.APIBaseURL, s.Dispatcher)

	s.Machine.OnTransition(func(t session.Transition) {
		logging.Debug("Session", "%s --%s--> %s", t.From, t.Trigger, t.To)
	})

	found, err := s.Store.Load(ctx)
	if err != nil {
		// A broken persisted session is not fatal: the user can log in again.
		logging.Warn("Bootstrap", "Ignoring unreadable stored session: %v", err)
	}
	if err := s.Machine.Bootstrap(found); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to bootstrap session: %w", err)
	}
	s.unsubscribe = s.Store.Subscribe(s.announce)

	if fp, ok := persister.(*credstore.FilePersister); ok && pc.Storage.Watch {
		s.watcher = credstore.WatchFilePersister(fp, s.syncExternal)
		if err := s.watcher.Start(); err != nil {
			logging.Warn("Bootstrap", "Not following other processes' logins: %v", err)
			s.watcher = nil
		}
	}

	logging.Debug("Bootstrap", "Services initialized (backend=%s, state=%s)", s.Store.Backend(), s.Machine.Current())
	return s, nil
}

func (s *Services) newPersister(ctx context.Context, cfg *Config) (credstore.Persister, error) {
	pc := cfg.PayrollConfig
	switch pc.Storage.Backend {
	case config.StorageBackendMemory:
		return credstore.NewMemoryPersister(), nil

	case config.StorageBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     pc.Storage.Redis.Addr,
			DB:       pc.Storage.Redis.DB,
			Password: pc.Storage.Redis.Password,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", pc.Storage.Redis.Addr, err)
		}
		s.redis = client
		return credstore.NewRedisPersister(client, pc.Storage.Redis.KeyPrefix), nil

	default:
		p, err := credstore.NewFilePersister(pc.SessionDir(cfg.configDir()))
		if err != nil {
			return nil, fmt.Errorf("failed to open session directory: %w", err)
		}
		return p, nil
	}
}

// syncExternal adopts a login or logout made by another process.
func (s *Services) syncExternal() {
	ctx, cancel := context.WithTimeout(context.Background(), externalSyncTimeout)
	defer cancel()

	change, changed, err := s.Store.Reload(ctx)
	if err != nil {
		logging.Warn("Session", "Failed to reload externally changed session: %v", err)
		return
	}
	if !changed {
		return
	}

	if change.Cleared {
		if err := s.Cascade.Logout(ctx, logout.ReasonExternal); err != nil {
			logging.Warn("Session", "External logout incomplete: %v", err)
		}
		return
	}

	if s.Machine.Current() == session.Anonymous {
		if err := s.Machine.LoginSucceeded(); err != nil {
			logging.Warn("Session", "Could not adopt external login: %v", err)
		}
	}
}

// announce publishes LoggedIn for every credential that starts a session,
// whether written by Login or adopted from another process. Refreshes and
// logouts are published by the coordinator and the cascade.
func (s *Services) announce(change credstore.Change) {
	if !change.Began {
		return
	}
	ev := events.Event{Kind: events.LoggedIn, Subject: change.Credential.Identity.Email}
	if change.External {
		ev.Reason = string(logout.ReasonExternal)
	}
	s.publish(ev)
}

func (s *Services) publish(ev events.Event) {
	if err := s.Bus.Publish(ev); err != nil {
		logging.Warn("Session", "Failed to publish %s: %v", ev, err)
	}
}

// Close stops the watcher and releases the bus and the Redis connection.
func (s *Services) Close() error {
	var errs []error
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Bus != nil {
		if err := s.Bus.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	// The stream forwarder closes the client it was given.
	if s.redis != nil {
		if err := s.redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
