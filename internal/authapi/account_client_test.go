package authapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrollctl/internal/testing/mock"
)

// bearerDoer attaches a fixed token, standing in for the dispatcher.
type bearerDoer struct{ token string }

func (d bearerDoer) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+d.token)
	return http.DefaultClient.Do(req)
}

func TestAccountClient_Me(t *testing.T) {
	backend := mock.NewBackend(mock.BackendConfig{})
	defer backend.Close()
	cred := backend.Issue(mock.DefaultEmail)

	c := NewAccountClient(backend.URL()+"/", bearerDoer{token: cred.AccessToken})
	p, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mock.DefaultEmail, p.Email)
	assert.Equal(t, "Jane Doe", p.DisplayName())
}

func TestAccountClient_MeUnauthorized(t *testing.T) {
	backend := mock.NewBackend(mock.BackendConfig{})
	defer backend.Close()

	c := NewAccountClient(backend.URL(), bearerDoer{token: "garbage"})
	_, err := c.Me(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Unauthorized())
}

func TestAccountClient_Revoke(t *testing.T) {
	backend := mock.NewBackend(mock.BackendConfig{})
	defer backend.Close()
	cred := backend.Issue(mock.DefaultEmail)

	c := NewAccountClient(backend.URL(), bearerDoer{token: cred.AccessToken})
	require.NoError(t, c.Revoke(context.Background()))

	assert.Equal(t, int64(1), backend.LogoutCalls())
	assert.False(t, backend.RefreshTokenValid(cred.RefreshToken))
}
