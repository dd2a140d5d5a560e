package authapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrollctl/internal/testing/mock"
	"payrollctl/pkg/auth"
)

func TestTokenClient_Login(t *testing.T) {
	backend := mock.NewBackend(mock.BackendConfig{})
	defer backend.Close()

	c := NewTokenClient(backend.URL())
	cred, err := c.Login(context.Background(), mock.DefaultEmail, auth.NewRedactedToken(mock.DefaultPassword))
	require.NoError(t, err)

	assert.True(t, cred.Complete())
	assert.Equal(t, mock.DefaultEmail, cred.Identity.Email)
	assert.Equal(t, auth.RoleHRManager, cred.Identity.Role)
	assert.False(t, cred.ExpiresAt.IsZero())
	assert.False(t, cred.IssuedAt.IsZero())
}

func TestTokenClient_LoginRejected(t *testing.T) {
	backend := mock.NewBackend(mock.BackendConfig{})
	defer backend.Close()

	c := NewTokenClient(backend.URL())
	_, err := c.Login(context.Background(), mock.DefaultEmail, auth.NewRedactedToken("wrong"))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.True(t, apiErr.Unauthorized())
	assert.Equal(t, "Incorrect email or password", apiErr.Detail)
	assert.NotContains(t, err.Error(), "wrong")
}

func TestTokenClient_Refresh(t *testing.T) {
	backend := mock.NewBackend(mock.BackendConfig{})
	defer backend.Close()

	first := backend.Issue(mock.DefaultEmail)
	c := NewTokenClient(backend.URL())

	next, err := c.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	assert.True(t, next.Complete())
	assert.NotEqual(t, first.AccessToken, next.AccessToken)
	assert.NotEqual(t, first.RefreshToken, next.RefreshToken)

	_, err = c.Refresh(context.Background(), first.RefreshToken)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestTokenClient_UsesClockWithoutJWT(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"opaque-a","refresh_token":"opaque-r","token_type":"bearer","expires_in":900,"user":{"id":"u1","email":"x@example.com"}}`))
	}))
	defer srv.Close()

	c := NewTokenClient(srv.URL, WithClock(func() time.Time { return fixed }), WithHTTPClient(srv.Client()))
	cred, err := c.Refresh(context.Background(), "r")
	require.NoError(t, err)

	assert.True(t, fixed.Equal(cred.IssuedAt))
	assert.True(t, fixed.Add(15*time.Minute).Equal(cred.ExpiresAt))
}

func TestParseDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail":"Invalid refresh token"}`, "Invalid refresh token"},
		{"validation list", `{"detail":[{"loc":["body","refresh_token"],"msg":"field required"}]}`, "refresh_token: field required"},
		{"no detail", `{"message":"x"}`, ""},
		{"not json", `<html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDetail([]byte(tt.body)))
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Endpoint: "/auth/refresh", StatusCode: 401, Detail: "Invalid refresh token"}
	assert.Equal(t, "/auth/refresh returned 401: Invalid refresh token", err.Error())

	err = &APIError{Endpoint: "/auth/me", StatusCode: 502}
	assert.Equal(t, "/auth/me returned 502 Bad Gateway", err.Error())
}
