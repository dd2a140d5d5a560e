package auth

// RedactedToken wraps a secret (a token or a password) so it cannot end up
// in logs or error strings by accident. All formatting and marshaling paths print
// "[REDACTED]"; only Value returns the secret.
type RedactedToken struct {
	value string
}

// NewRedactedToken wraps value.
func NewRedactedToken(value string) RedactedToken {
	return RedactedToken{value: value}
}

// Value returns the wrapped token. Never log the result.
func (t RedactedToken) Value() string {
	return t.value
}

func (t RedactedToken) String() string {
	return "[REDACTED]"
}

func (t RedactedToken) GoString() string {
	return "auth.RedactedToken{[REDACTED]}"
}

// IsEmpty reports whether no token is wrapped.
func (t RedactedToken) IsEmpty() bool {
	return t.value == ""
}

func (t RedactedToken) MarshalText() ([]byte, error) {
	return []byte("[REDACTED]"), nil
}

func (t RedactedToken) MarshalJSON() ([]byte, error) {
	return []byte(`"[REDACTED]"`), nil
}
