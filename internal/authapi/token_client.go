package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"payrollctl/pkg/auth"
	"payrollctl/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for token requests.
const DefaultHTTPTimeout = 30 * time.Second

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh"
	logoutPath  = "/auth/logout"
	mePath      = "/auth/me"
)

// TokenResponse is the body of a successful login or refresh.
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in,omitempty"`
	User         auth.Profile `json:"user"`
}

// TokenClient obtains credentials from /auth/login and /auth/refresh.
type TokenClient struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// ClientOption configures a TokenClient.
type ClientOption func(*TokenClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *TokenClient) {
		c.httpClient = httpClient
	}
}

// WithClock overrides the time source used to stamp new credentials.
func WithClock(now func() time.Time) ClientOption {
	return func(c *TokenClient) {
		c.now = now
	}
}

// NewTokenClient creates a client for the API rooted at baseURL
// (e.g. http://localhost:8000/api/v1).
func NewTokenClient(baseURL string, opts ...ClientOption) *TokenClient {
	c := &TokenClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges email and password for a credential.
func (c *TokenClient) Login(ctx context.Context, email string, password auth.RedactedToken) (auth.Credential, error) {
	data := url.Values{
		"username": {email},
		"password": {password.Value()},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, strings.NewReader(data.Encode()))
	if err != nil {
		return auth.Credential{}, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.doTokenRequest(req, loginPath)
}

// Refresh exchanges a refresh token for a new credential. The backend
// rotates the refresh token: the one passed in is no longer valid
// afterwards.
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (auth.Credential, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return auth.Credential{}, fmt.Errorf("failed to marshal refresh request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(body))
	if err != nil {
		return auth.Credential{}, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doTokenRequest(req, refreshPath)
}

func (c *TokenClient) doTokenRequest(req *http.Request, endpoint string) (auth.Credential, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return auth.Credential{}, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return auth.Credential{}, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := NewAPIError(endpoint, resp.StatusCode, body)
		logging.Debug("AuthAPI", "Token request to %s failed: %v", endpoint, apiErr)
		return auth.Credential{}, apiErr
	}

	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return auth.Credential{}, fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}

	cred := auth.NewCredential(tr.AccessToken, tr.RefreshToken, tr.TokenType, tr.ExpiresIn, tr.User, c.now())
	logging.Debug("AuthAPI", "Received %v from %s", cred, endpoint)
	return cred, nil
}
