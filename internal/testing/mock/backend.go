package mock

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"payrollctl/pkg/auth"
)

const (
	// APIPrefix is the path prefix of every backend endpoint.
	APIPrefix = "/api/v1"

	// DefaultEmail and DefaultPassword identify the user every Backend knows.
	DefaultEmail    = "jane@example.com"
	DefaultPassword = "correct-horse-battery"

	// DefaultTokenLifetime is the access token lifetime.
	DefaultTokenLifetime = 15 * time.Minute
)

// User is an account known to the fake backend.
type User struct {
	Password string
	Profile  auth.Profile
}

// DefaultUser returns the account every Backend is seeded with.
func DefaultUser() User {
	return User{
		Password: DefaultPassword,
		Profile: auth.Profile{
			ID:        "8d3c6a5e-6f0b-4b7e-9d2a-1c0f4a8e2b11",
			Email:     DefaultEmail,
			FirstName: "Jane",
			LastName:  "Doe",
			Role:      auth.RoleHRManager,
			IsActive:  true,
		},
	}
}

// BackendConfig configures a Backend.
type BackendConfig struct {
	// Clock drives token issue and expiry. Defaults to RealClock.
	Clock Clock

	// TokenLifetime defaults to DefaultTokenLifetime.
	TokenLifetime time.Duration

	// Users are added to DefaultUser.
	Users []User
}

// Backend is a fake payroll API.
type Backend struct {
	config BackendConfig
	server *httptest.Server
	key    []byte
	users  map[string]User

	mu        sync.Mutex
	access    map[string]string
	refresh   map[string]string
	gate      chan struct{}
	failWith  int
	forbidden map[string]bool
	hits      map[string]int
	authz     map[string][]string

	logins       atomic.Int64
	refreshes    atomic.Int64
	logouts      atomic.Int64
	unauthorized atomic.Int64
	seq          atomic.Int64
}

// NewBackend starts a fake backend. Close it when done.
func NewBackend(config BackendConfig) *Backend {
	if config.Clock == nil {
		config.Clock = RealClock{}
	}
	if config.TokenLifetime == 0 {
		config.TokenLifetime = DefaultTokenLifetime
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("mock backend: failed to generate signing key: %v", err))
	}

	b := &Backend{
		config:    config,
		key:       key,
		users:     make(map[string]User),
		access:    make(map[string]string),
		refresh:   make(map[string]string),
		forbidden: make(map[string]bool),
		hits:      make(map[string]int),
		authz:     make(map[string][]string),
	}
	for _, u := range append([]User{DefaultUser()}, config.Users...) {
		b.users[u.Profile.Email] = u
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+APIPrefix+"/auth/login", b.handleLogin)
	mux.HandleFunc("POST "+APIPrefix+"/auth/refresh", b.handleRefresh)
	mux.HandleFunc("POST "+APIPrefix+"/auth/logout", b.handleLogout)
	mux.HandleFunc("GET "+APIPrefix+"/auth/me", b.handleMe)
	mux.HandleFunc("POST "+APIPrefix+"/echo", b.handleEcho)
	mux.HandleFunc("GET "+APIPrefix+"/", b.handleResource)

	b.server = httptest.NewServer(mux)
	return b
}

// URL returns the API base URL, e.g. http://127.0.0.1:1234/api/v1.
func (b *Backend) URL() string {
	return b.server.URL + APIPrefix
}

// Close shuts the server down. A held refresh gate is released first.
func (b *Backend) Close() {
	b.mu.Lock()
	if b.gate != nil {
		close(b.gate)
		b.gate = nil
	}
	b.mu.Unlock()
	b.server.Close()
}

// Issue mints a valid credential for email as if it had logged in.
func (b *Backend) Issue(email string) auth.Credential {
	u, ok := b.users[email]
	if !ok {
		panic("mock backend: unknown user " + email)
	}
	tr := b.issue(u.Profile)
	return auth.NewCredential(tr.AccessToken, tr.RefreshToken, tr.TokenType, tr.ExpiresIn, tr.User, b.config.Clock.Now())
}

// ExpireAccessTokens makes every access token issued so far invalid.
// Refresh tokens stay valid.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = make(map[string]string)
}

// RevokeRefreshTokens makes every refresh token issued so far invalid.
func (b *Backend) RevokeRefreshTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh = make(map[string]string)
}

// HoldRefresh makes /auth/refresh block until the returned function is called.
// The call is still counted when it arrives.
func (b *Backend) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gate = gate
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.gate == gate {
				close(gate)
				b.gate = nil
			}
			b.mu.Unlock()
		})
	}
}

// FailRefresh makes /auth/refresh answer with status. Zero restores normal behavior.
func (b *Backend) FailRefresh(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWith = status
}

// Forbid makes path (relative to APIPrefix) answer 403 to authenticated callers.
func (b *Backend) Forbid(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forbidden[path] = true
}

// RefreshTokenValid reports whether rt would be accepted by /auth/refresh.
func (b *Backend) RefreshTokenValid(rt string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.refresh[rt]
	return ok
}

// LoginCalls returns the number of /auth/login requests.
func (b *Backend) LoginCalls() int64 { return b.logins.Load() }

// RefreshCalls returns the number of /auth/refresh requests.
func (b *Backend) RefreshCalls() int64 { return b.refreshes.Load() }

// LogoutCalls returns the number of /auth/logout requests.
func (b *Backend) LogoutCalls() int64 { return b.logouts.Load() }

// Unauthorized returns the number of 401 answers from authenticated endpoints.
func (b *Backend) Unauthorized() int64 { return b.unauthorized.Load() }

// Hits returns the number of requests to path (relative to APIPrefix).
func (b *Backend) Hits(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

// Authorizations returns the Authorization headers seen on path, in order.
func (b *Backend) Authorizations(path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authz[path]...)
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         auth.Profile `json:"user"`
}

type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (b *Backend) issue(p auth.Profile) tokenResponse {
	now := b.config.Clock.Now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.config.TokenLifetime)),
			ID:        strconv.FormatInt(b.seq.Add(1), 10),
		},
		Email: p.Email,
		Role:  string(p.Role),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.key)
	if err != nil {
		panic(fmt.Sprintf("mock backend: failed to sign token: %v", err))
	}
	rt := "rt-" + uuid.NewString()

	b.mu.Lock()
	b.access[signed] = p.Email
	b.refresh[rt] = p.Email
	b.mu.Unlock()

	return tokenResponse{
		AccessToken:  signed,
		RefreshToken: rt,
		TokenType:    "bearer",
		ExpiresIn:    int(b.config.TokenLifetime / time.Second),
		User:         p,
	}
}

// authenticate validates the bearer token and answers 401 itself on failure.
func (b *Backend) authenticate(w http.ResponseWriter, r *http.Request) (User, string, bool) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		b.unauthorized.Add(1)
		w.Header().Set("WWW-Authenticate", `Bearer realm="payroll"`)
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return User{}, "", false
	}

	var claims accessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return b.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(b.config.Clock.Now))

	b.mu.Lock()
	email, known := b.access[raw]
	b.mu.Unlock()

	if err != nil || !known {
		desc := "The access token is invalid"
		if errors.Is(err, jwt.ErrTokenExpired) || (err == nil && !known) {
			desc = "The access token expired"
		}
		b.unauthorized.Add(1)
		w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="payroll", error="invalid_token", error_description=%q`, desc))
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return User{}, "", false
	}
	return b.users[email], raw, true
}

func (b *Backend) record(r *http.Request) string {
	path := strings.TrimPrefix(r.URL.Path, APIPrefix)
	b.mu.Lock()
	b.hits[path]++
	b.authz[path] = append(b.authz[path], r.Header.Get("Authorization"))
	b.mu.Unlock()
	return path
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	b.logins.Add(1)
	b.record(r)
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid form body")
		return
	}
	u, ok := b.users[r.PostForm.Get("username")]
	if !ok || u.Password != r.PostForm.Get("password") {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if !u.Profile.IsActive {
		writeDetail(w, http.StatusForbidden, "Inactive user")
		return
	}
	writeJSON(w, http.StatusOK, b.issue(u.Profile))
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshes.Add(1)
	b.record(r)

	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	b.mu.Lock()
	failWith := b.failWith
	b.mu.Unlock()
	if failWith != 0 {
		writeDetail(w, failWith, "Invalid or expired refresh token")
		return
	}

	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "refresh_token is required")
		return
	}

	b.mu.Lock()
	email, ok := b.refresh[body.RefreshToken]
	if ok {
		delete(b.refresh, body.RefreshToken)
	}
	b.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	writeJSON(w, http.StatusOK, b.issue(b.users[email].Profile))
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.logouts.Add(1)
	b.record(r)
	u, raw, ok := b.authenticate(w, r)
	if !ok {
		return
	}

	b.mu.Lock()
	delete(b.access, raw)
	for rt, email := range b.refresh {
		if email == u.Profile.Email {
			delete(b.refresh, rt)
		}
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	u, _, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, u.Profile)
}

func (b *Backend) handleEcho(w http.ResponseWriter, r *http.Request) {
	path := b.record(r)
	if _, _, ok := b.authenticate(w, r); !ok {
		return
	}
	if b.isForbidden(path) {
		writeDetail(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
	w.Header().Set("X-Request-ID", r.Header.Get("X-Request-ID"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (b *Backend) handleResource(w http.ResponseWriter, r *http.Request) {
	path := b.record(r)
	if _, _, ok := b.authenticate(w, r); !ok {
		return
	}
	if b.isForbidden(path) {
		writeDetail(w, http.StatusForbidden, "Not enough permissions")
		return
	}

	if payload, ok := collections[path]; ok {
		writeJSON(w, http.StatusOK, payload)
		return
	}
	if item, ok := lookupItem(path); ok {
		writeJSON(w, http.StatusOK, item)
		return
	}
	writeDetail(w, http.StatusNotFound, "Not found")
}

func (b *Backend) isForbidden(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.forbidden[path]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
