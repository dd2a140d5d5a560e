package refresh

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRefreshToken is the cause when there is no credential to refresh.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrSessionEnded is the cause when the session was logged out while
	// the refresh call was in flight.
	ErrSessionEnded = errors.New("session ended during refresh")

	// ErrIncompleteResponse is the cause when the refresh endpoint answered
	// without a full token pair.
	ErrIncompleteResponse = errors.New("refresh response did not contain a token pair")
)

// RefreshError is delivered to every participant of a failed episode.
type RefreshError struct {
	Cause error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("credential refresh failed: %v", e.Cause)
}

func (e *RefreshError) Unwrap() error {
	return e.Cause
}
