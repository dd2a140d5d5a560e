// Package session implements the session state machine.
//
// A process has exactly one session. It rests in Anonymous or Authenticated
// and passes through Refreshing only for the duration of one refresh
// episode:
//
//	Anonymous     --login success-->   Authenticated
//	Authenticated --expiry detected--> Refreshing
//	Refreshing    --refresh success--> Authenticated
//	Refreshing    --refresh failure--> Anonymous
//	Authenticated --explicit logout--> Anonymous
//
// Any other transition is rejected with a *TransitionError and leaves the
// state untouched.
package session
