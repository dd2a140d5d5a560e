package authapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"payrollctl/pkg/auth"
)

// Doer sends an HTTP request. *http.Client and the dispatcher both satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AccountClient calls the authenticated /auth endpoints.
type AccountClient struct {
	baseURL string
	doer    Doer
}

// NewAccountClient sends its requests through doer.
func NewAccountClient(baseURL string, doer Doer) *AccountClient {
	return &AccountClient{baseURL: strings.TrimSuffix(baseURL, "/"), doer: doer}
}

// Me returns the profile of the logged-in user.
func (c *AccountClient) Me(ctx context.Context) (auth.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+mePath, nil)
	if err != nil {
		return auth.Profile{}, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return auth.Profile{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return auth.Profile{}, fmt.Errorf("failed to read profile response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return auth.Profile{}, NewAPIError(mePath, resp.StatusCode, body)
	}

	var p auth.Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return auth.Profile{}, fmt.Errorf("failed to parse profile response: %w", err)
	}
	return p, nil
}

// Revoke asks the backend to invalidate the current session's refresh token.
func (c *AccountClient) Revoke(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+logoutPath, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode/100 != 2 {
		return NewAPIError(logoutPath, resp.StatusCode, body)
	}
	return nil
}
