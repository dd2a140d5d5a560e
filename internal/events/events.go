package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Topic is the watermill topic every session event is published on.
const Topic = "payroll.session"

// Kind identifies what happened to the session.
type Kind string

const (
	// LoggedIn is published after a successful login.
	LoggedIn Kind = "logged_in"

	// CredentialRefreshed is published after a refresh episode succeeded.
	CredentialRefreshed Kind = "credential_refreshed"

	// SessionEnded is published once per logout cascade.
	SessionEnded Kind = "session_ended"
)

// Event is the payload of a session event. It never carries token values.
type Event struct {
	Kind    Kind      `json:"kind"`
	Subject string    `json:"subject,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

func (e Event) String() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s(%s)", e.Kind, e.Reason)
	}
	return string(e.Kind)
}

func (e Event) marshal() ([]byte, error) {
	return json.Marshal(e)
}

func unmarshalEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal session event: %w", err)
	}
	return ev, nil
}
