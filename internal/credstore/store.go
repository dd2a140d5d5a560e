package credstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"payrollctl/pkg/auth"
	"payrollctl/pkg/logging"
)

var (
	// ErrIncompleteCredential is returned when only one of the two tokens is set.
	ErrIncompleteCredential = errors.New("credential must carry both access and refresh token")

	// ErrCredentialChanged is returned by Replace when the stored credential
	// is no longer the one the caller based its write on.
	ErrCredentialChanged = errors.New("stored credential changed concurrently")
)

// PersistError reports that the in-memory credential was updated but the
// persister failed to record it.
type PersistError struct {
	Op      string
	Backend string
	Err     error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("credential %s via %s backend failed: %v", e.Op, e.Backend, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Change is delivered to subscribers after every write.
type Change struct {
	// Credential is the new value; zero when Cleared is true.
	Credential auth.Credential

	// Cleared is true when the store became empty.
	Cleared bool

	// Began is true when a credential was stored while none was held,
	// that is when a session started.
	Began bool

	// External is true when the change was picked up from the persister by
	// Reload rather than written by this process.
	External bool
}

// Store is the single source of truth for the session credential.
// Reads are lock-free; writes are serialized.
type Store struct {
	persister Persister

	current atomic.Pointer[auth.Credential]

	// mu serializes writers and subscriber notification.
	mu sync.Mutex

	subsMu sync.Mutex
	subs   map[uint64]func(Change)
	nextID uint64
}

// New returns an empty store backed by p.
func New(p Persister) *Store {
	if p == nil {
		p = NewMemoryPersister()
	}
	return &Store{
		persister: p,
		subs:      make(map[uint64]func(Change)),
	}
}

// Backend returns the persister name.
func (s *Store) Backend() string {
	return s.persister.Name()
}

// Get returns the current credential and whether one is held.
func (s *Store) Get() (auth.Credential, bool) {
	c := s.current.Load()
	if c == nil {
		return auth.Credential{}, false
	}
	return *c, true
}

// Set stores cred as the current credential.
//
// The in-memory value is updated even when persisting fails; in that case a
// *PersistError is returned.
func (s *Store) Set(ctx context.Context, cred auth.Credential) error {
	if !cred.Complete() {
		return ErrIncompleteCredential
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(ctx, cred)
}

// Replace is Set conditioned on the currently held refresh token being
// expectedRefresh. It returns ErrCredentialChanged without writing anything
// when the store was cleared or rewritten in the meantime.
func (s *Store) Replace(ctx context.Context, expectedRefresh string, cred auth.Credential) error {
	if !cred.Complete() {
		return ErrIncompleteCredential
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	if cur == nil || cur.RefreshToken != expectedRefresh {
		return ErrCredentialChanged
	}
	return s.setLocked(ctx, cred)
}

func (s *Store) setLocked(ctx context.Context, cred auth.Credential) error {
	persistErr := s.persister.Save(ctx, cred)

	c := cred
	prev := s.current.Swap(&c)

	if persistErr != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "credential_store_failed",
			Outcome: "failure",
			Subject: cred.Identity.Email,
			Backend: s.persister.Name(),
			Err:     persistErr,
		})
	} else {
		logging.Audit(logging.AuditEvent{
			Action:  "credential_stored",
			Outcome: "success",
			Subject: cred.Identity.Email,
			Backend: s.persister.Name(),
		})
	}

	s.notify(Change{Credential: c, Began: prev == nil})

	if persistErr != nil {
		return &PersistError{Op: "store", Backend: s.persister.Name(), Err: persistErr}
	}
	return nil
}

// Clear removes the current credential from memory and from the persister.
// The in-memory value is cleared even when the persister fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current.Swap(nil)
	persistErr := s.persister.Delete(ctx)

	subject := ""
	if prev != nil {
		subject = prev.Identity.Email
	}
	if persistErr != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "credential_clear_failed",
			Outcome: "failure",
			Subject: subject,
			Backend: s.persister.Name(),
			Err:     persistErr,
		})
	} else {
		logging.Audit(logging.AuditEvent{
			Action:  "credential_cleared",
			Outcome: "success",
			Subject: subject,
			Backend: s.persister.Name(),
		})
	}

	s.notify(Change{Cleared: true})

	if persistErr != nil {
		return &PersistError{Op: "clear", Backend: s.persister.Name(), Err: persistErr}
	}
	return nil
}

// Load restores the persisted credential into memory. It reports whether a
// credential was found. Torn records are treated as no credential.
// Subscribers are not notified.
func (s *Store) Load(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.persister.Load(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		logging.Debug("CredentialStore", "No stored credential in %s backend: %v", s.persister.Name(), err)
		return false, nil
	case errors.Is(err, ErrTornRecords):
		logging.Warn("CredentialStore", "Ignoring stored credential in %s backend: %v", s.persister.Name(), err)
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to load credential: %w", err)
	}

	c := cred
	s.current.Store(&c)
	logging.Info("CredentialStore", "Restored session for %s from %s backend", cred.Identity.Email, s.persister.Name())
	return true, nil
}

// Reload re-reads the persister and adopts its content if it differs from
// memory, notifying subscribers with External set. It returns the change
// and whether anything changed. Nothing is written back to the persister.
//
// The read happens under the writer lock so a concurrent Set cannot be
// overwritten by an older snapshot. Torn records leave memory untouched;
// the write that completes them triggers another reload.
func (s *Store) Reload(ctx context.Context) (Change, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.persister.Load(ctx)
	found := true
	switch {
	case errors.Is(err, ErrTornRecords):
		logging.Debug("CredentialStore", "Skipping reload from %s backend: %v", s.persister.Name(), err)
		return Change{}, false, nil
	case errors.Is(err, ErrNotFound):
		found = false
	case err != nil:
		return Change{}, false, fmt.Errorf("failed to reload credential: %w", err)
	}

	cur := s.current.Load()
	var change Change
	switch {
	case !found && cur == nil:
		return Change{}, false, nil
	case !found:
		s.current.Store(nil)
		change = Change{Cleared: true, External: true}
	case cur != nil && cur.SameTokens(cred):
		return Change{}, false, nil
	default:
		c := cred
		s.current.Store(&c)
		change = Change{Credential: c, External: true, Began: cur == nil}
	}

	logging.Info("CredentialStore", "Adopted externally changed credential (cleared=%t)", change.Cleared)
	s.notify(change)
	return change, true, nil
}

// Subscribe registers fn for every subsequent Change and returns a function
// that removes it. fn runs synchronously on the writer's goroutine and must
// not write to the store.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Store) notify(change Change) {
	s.subsMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for id := uint64(0); id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}
