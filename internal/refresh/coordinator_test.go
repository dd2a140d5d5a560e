package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrollctl/internal/credstore"
	"payrollctl/internal/events"
	"payrollctl/internal/logout"
	"payrollctl/internal/session"
	"payrollctl/pkg/auth"
)

type stubRefresher struct {
	calls   atomic.Int32
	gate    chan struct{}
	started chan struct{}
	next    auth.Credential
	err     error
	seen    atomic.Value
}

func (s *stubRefresher) Refresh(ctx context.Context, refreshToken string) (auth.Credential, error) {
	s.calls.Add(1)
	s.seen.Store(refreshToken)
	if s.started != nil {
		select {
		case s.started <- struct{}{}:
		default:
		}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return auth.Credential{}, ctx.Err()
		}
	}
	return s.next, s.err
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Kind
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

var (
	a1 = auth.Credential{AccessToken: "A1", RefreshToken: "R1", Identity: auth.Profile{ID: "u-1", Email: "jane@example.com"}}
	a2 = auth.Credential{AccessToken: "A2", RefreshToken: "R2"}
)

type harness struct {
	store   *credstore.Store
	machine *session.Machine
	ref     *stubRefresher
	rec     *recorder
	coord   *Coordinator
}

func newHarness(t *testing.T, p credstore.Persister, ref *stubRefresher) *harness {
	t.Helper()
	h := &harness{
		store:   credstore.New(p),
		machine: session.NewMachine(),
		ref:     ref,
		rec:     &recorder{},
	}
	_ = h.store.Set(context.Background(), a1)
	require.NoError(t, h.machine.LoginSucceeded())

	cascade := logout.New(h.store, h.machine, logout.WithEvents(h.rec))
	h.coord = New(h.store, h.machine, ref, cascade, WithEvents(h.rec), WithTimeout(2*time.Second))
	return h
}

func TestCoordinator_RefreshSuccess(t *testing.T) {
	h := newHarness(t, nil, &stubRefresher{next: a2})

	cred, err := h.coord.Refresh(context.Background(), "A1")
	require.NoError(t, err)

	assert.Equal(t, "A2", cred.AccessToken)
	assert.Equal(t, "R1", h.ref.seen.Load())
	assert.Equal(t, "jane@example.com", cred.Identity.Email, "identity carries over when the response has none")

	stored, ok := h.store.Get()
	require.True(t, ok)
	assert.True(t, stored.SameTokens(cred))
	assert.Equal(t, session.Authenticated, h.machine.Current())
	assert.Equal(t, []events.Kind{events.CredentialRefreshed}, h.rec.kinds())

	stats := h.coord.Stats()
	assert.Equal(t, Stats{Episodes: 1, NetworkCalls: 1}, stats)
}

func TestCoordinator_StaleRejectionShortcut(t *testing.T) {
	h := newHarness(t, nil, &stubRefresher{next: a2})
	require.NoError(t, h.store.Set(context.Background(), a2))

	cred, err := h.coord.Refresh(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, "A2", cred.AccessToken)
	assert.Zero(t, h.ref.calls.Load())
	assert.Equal(t, int64(1), h.coord.Stats().Shortcuts)
	assert.Equal(t, session.Authenticated, h.machine.Current())
}

func TestCoordinator_ConcurrentCallersShareOneCall(t *testing.T) {
	ref := &stubRefresher{next: a2, gate: make(chan struct{}), started: make(chan struct{}, 1)}
	h := newHarness(t, nil, ref)

	const n = 10
	var wg sync.WaitGroup
	creds := make([]auth.Credential, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			creds[i], errs[i] = h.coord.Refresh(context.Background(), "A1")
		}(i)
	}

	<-ref.started
	require.Eventually(t, func() bool {
		return h.coord.Stats().SharedWaits == n-1
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, session.Refreshing, h.machine.Current())
	close(ref.gate)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "A2", creds[i].AccessToken)
	}
	assert.Equal(t, int32(1), ref.calls.Load())

	stats := h.coord.Stats()
	assert.Equal(t, int64(1), stats.Episodes)
	assert.Equal(t, int64(1), stats.NetworkCalls)
}

func TestCoordinator_FailureEndsSessionForAllWaiters(t *testing.T) {
	rejected := errors.New("401 Invalid or expired refresh token")
	ref := &stubRefresher{err: rejected, gate: make(chan struct{}), started: make(chan struct{}, 1)}
	h := newHarness(t, nil, ref)

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.coord.Refresh(context.Background(), "A1")
		}(i)
	}
	<-ref.started
	require.Eventually(t, func() bool {
		return h.coord.Stats().SharedWaits == n-1
	}, 2*time.Second, time.Millisecond)
	close(ref.gate)
	wg.Wait()

	var first *RefreshError
	require.ErrorAs(t, errs[0], &first)
	assert.ErrorIs(t, first, rejected)
	for _, err := range errs[1:] {
		var rerr *RefreshError
		require.ErrorAs(t, err, &rerr)
		assert.Same(t, first, rerr)
	}

	_, ok := h.store.Get()
	assert.False(t, ok)
	assert.Equal(t, session.Anonymous, h.machine.Current())
	assert.Equal(t, []events.Kind{events.SessionEnded}, h.rec.kinds())
	assert.Equal(t, int64(1), h.coord.Stats().Failures)
}

func TestCoordinator_NoRefreshToken(t *testing.T) {
	h := newHarness(t, nil, &stubRefresher{next: a2})
	require.NoError(t, logout.New(h.store, h.machine).Logout(context.Background(), logout.ReasonUserLogout))

	_, err := h.coord.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Zero(t, h.ref.calls.Load())
	assert.Equal(t, session.Anonymous, h.machine.Current())

	stats := h.coord.Stats()
	assert.Zero(t, stats.Episodes, "no session means no refresh episode")
	assert.Zero(t, stats.Failures)
	assert.Empty(t, h.rec.kinds(), "an already ended session is not ended again")
}

func TestCoordinator_IncompleteResponse(t *testing.T) {
	h := newHarness(t, nil, &stubRefresher{next: auth.Credential{AccessToken: "A2"}})

	_, err := h.coord.Refresh(context.Background(), "A1")
	assert.ErrorIs(t, err, ErrIncompleteResponse)
	_, ok := h.store.Get()
	assert.False(t, ok)
	assert.Equal(t, session.Anonymous, h.machine.Current())
}

type brokenPersister struct{ credstore.MemoryPersister }

func (*brokenPersister) Save(context.Context, auth.Credential) error {
	return errors.New("read-only file system")
}

func TestCoordinator_PersistFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, &brokenPersister{}, &stubRefresher{next: a2})

	cred, err := h.coord.Refresh(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, "A2", cred.AccessToken)

	stored, ok := h.store.Get()
	require.True(t, ok)
	assert.Equal(t, "A2", stored.AccessToken)
	assert.Equal(t, session.Authenticated, h.machine.Current())
}

func TestCoordinator_CallerCancelDoesNotAbortEpisode(t *testing.T) {
	ref := &stubRefresher{next: a2, gate: make(chan struct{}), started: make(chan struct{}, 1)}
	h := newHarness(t, nil, ref)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := h.coord.Refresh(ctx, "A1")
		errCh <- err
	}()
	<-ref.started
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(ref.gate)
	require.Eventually(t, func() bool {
		cred, ok := h.store.Get()
		return ok && cred.AccessToken == "A2"
	}, 2*time.Second, time.Millisecond)
	assert.Eventually(t, func() bool {
		return h.machine.Current() == session.Authenticated
	}, 2*time.Second, time.Millisecond)
}

func TestCoordinator_SequentialEpisodes(t *testing.T) {
	ref := &stubRefresher{next: a2}
	h := newHarness(t, nil, ref)

	_, err := h.coord.Refresh(context.Background(), "A1")
	require.NoError(t, err)

	ref.next = auth.Credential{AccessToken: "A3", RefreshToken: "R3"}
	cred, err := h.coord.Refresh(context.Background(), "A2")
	require.NoError(t, err)
	assert.Equal(t, "A3", cred.AccessToken)
	assert.Equal(t, "R2", ref.seen.Load())
	assert.Equal(t, int64(2), h.coord.Stats().Episodes)
}

func TestRefreshError(t *testing.T) {
	err := &RefreshError{Cause: ErrNoRefreshToken}
	assert.Equal(t, "credential refresh failed: no refresh token available", err.Error())
	assert.True(t, errors.Is(err, ErrNoRefreshToken))
}
