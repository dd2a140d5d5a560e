package auth

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestRedactedToken(t *testing.T) {
	token := NewRedactedToken("secret-token-value")

	if token.Value() != "secret-token-value" {
		t.Errorf("Value() = %q, want the wrapped token", token.Value())
	}
	if got := fmt.Sprintf("%s %v %#v", token, token, token); got != "[REDACTED] [REDACTED] auth.RedactedToken{[REDACTED]}" {
		t.Errorf("formatted token leaked or changed: %q", got)
	}

	data, err := json.Marshal(struct {
		Token RedactedToken `json:"token"`
	}{token})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"token":"[REDACTED]"}` {
		t.Errorf("unexpected JSON %s", data)
	}

	if !NewRedactedToken("").IsEmpty() {
		t.Error("empty token should report IsEmpty")
	}
}
