package auth

import "time"

// StatusResponse is the machine-readable session status printed by
// `payrollctl status --output json`.
type StatusResponse struct {
	// State is the session state: "anonymous", "authenticated" or "refreshing".
	State string `json:"state"`

	// Authenticated is true when a complete credential is held.
	Authenticated bool `json:"authenticated"`

	User string `json:"user,omitempty"`
	Role Role   `json:"role,omitempty"`

	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// Backend is the credential persistence backend ("file", "redis", "memory").
	Backend string `json:"backend"`

	// APIBaseURL is the backend the session belongs to.
	APIBaseURL string `json:"api_base_url"`

	// Refresh holds coordinator counters for the current process.
	Refresh *RefreshStats `json:"refresh,omitempty"`
}

// RefreshStats are the refresh coordinator's counters.
type RefreshStats struct {
	Episodes     int64 `json:"episodes"`
	NetworkCalls int64 `json:"network_calls"`
	SharedWaits  int64 `json:"shared_waits"`
	Shortcuts    int64 `json:"shortcuts"`
	Failures     int64 `json:"failures"`
}
