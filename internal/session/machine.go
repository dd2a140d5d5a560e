package session

import (
	"fmt"
	"sync"

	"payrollctl/pkg/logging"
)

// State is the current authentication state of the process.
type State int

const (
	// Anonymous means no credential is held.
	Anonymous State = iota

	// Authenticated means a complete credential is held and believed usable.
	Authenticated

	// Refreshing means a refresh episode is in flight.
	Refreshing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// IsRest reports whether s is a stable rest state.
func (s State) IsRest() bool {
	return s == Anonymous || s == Authenticated
}

// Trigger names the event that causes a transition.
type Trigger string

const (
	TriggerLogin          Trigger = "login_success"
	TriggerExpiryDetected Trigger = "expiry_detected"
	TriggerRefreshSuccess Trigger = "refresh_success"
	TriggerRefreshFailure Trigger = "refresh_failure"
	TriggerLogout         Trigger = "logout"
)

type edge struct {
	from    State
	trigger Trigger
}

var transitions = map[edge]State{
	{Anonymous, TriggerLogin}:              Authenticated,
	{Authenticated, TriggerExpiryDetected}: Refreshing,
	{Refreshing, TriggerRefreshSuccess}:    Authenticated,
	{Refreshing, TriggerRefreshFailure}:    Anonymous,
	{Authenticated, TriggerLogout}:         Anonymous,
}

// Transition records one completed state change.
type Transition struct {
	From    State
	To      State
	Trigger Trigger
}

// TransitionError is returned for a trigger that is not legal in the current state.
type TransitionError struct {
	From    State
	Trigger Trigger
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal session transition: %s in state %s", e.Trigger, e.From)
}

// Machine is the process-wide session state machine. It is safe for
// concurrent use.
type Machine struct {
	mu        sync.Mutex
	state     State
	observers []func(Transition)
}

// NewMachine returns a machine in the Anonymous state.
func NewMachine() *Machine {
	return &Machine{state: Anonymous}
}

// Bootstrap sets the initial rest state from whether a persisted credential
// was loaded at startup. It is only valid before any transition happened,
// i.e. while the machine is still Anonymous.
func (m *Machine) Bootstrap(hasCredential bool) error {
	if !hasCredential {
		return nil
	}
	return m.fire(TriggerLogin)
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnTransition registers fn to be called after every successful transition.
// Observers run synchronously, in registration order, outside the lock.
func (m *Machine) OnTransition(fn func(Transition)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// LoginSucceeded moves Anonymous -> Authenticated.
func (m *Machine) LoginSucceeded() error { return m.fire(TriggerLogin) }

// ExpiryDetected moves Authenticated -> Refreshing.
func (m *Machine) ExpiryDetected() error { return m.fire(TriggerExpiryDetected) }

// RefreshSucceeded moves Refreshing -> Authenticated.
func (m *Machine) RefreshSucceeded() error { return m.fire(TriggerRefreshSuccess) }

// RefreshFailed moves Refreshing -> Anonymous.
func (m *Machine) RefreshFailed() error { return m.fire(TriggerRefreshFailure) }

// LoggedOut moves Authenticated -> Anonymous.
func (m *Machine) LoggedOut() error { return m.fire(TriggerLogout) }

func (m *Machine) fire(trigger Trigger) error {
	m.mu.Lock()
	from := m.state
	to, ok := transitions[edge{from, trigger}]
	if !ok {
		m.mu.Unlock()
		return &TransitionError{From: from, Trigger: trigger}
	}
	m.state = to
	observers := make([]func(Transition), len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	t := Transition{From: from, To: to, Trigger: trigger}
	logging.Debug("Session", "Session %s -> %s (%s)", from, to, trigger)
	for _, fn := range observers {
		fn(t)
	}
	return nil
}
