package dispatcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrollctl/internal/credstore"
	"payrollctl/pkg/auth"
)

type fakeRefresher struct {
	calls    atomic.Int32
	rejected []string
	mu       sync.Mutex
	next     auth.Credential
	err      error
	store    *credstore.Store
}

func (f *fakeRefresher) Refresh(ctx context.Context, rejected string) (auth.Credential, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.rejected = append(f.rejected, rejected)
	f.mu.Unlock()
	if f.err != nil {
		return auth.Credential{}, f.err
	}
	if f.store != nil {
		if err := f.store.Set(ctx, f.next); err != nil {
			return auth.Credential{}, err
		}
	}
	return f.next, nil
}

func newStore(t *testing.T, access, refresh string) *credstore.Store {
	t.Helper()
	s := credstore.New(credstore.NewMemoryPersister())
	if access != "" {
		require.NoError(t, s.Set(context.Background(), auth.Credential{AccessToken: access, RefreshToken: refresh}))
	}
	return s
}

// tokenServer answers 200 only to the listed bearer tokens and 401 otherwise.
type tokenServer struct {
	*httptest.Server
	accepted map[string]bool
	status   int

	mu      sync.Mutex
	headers []http.Header
	bodies  []string
}

func newTokenServer(t *testing.T, accepted ...string) *tokenServer {
	t.Helper()
	ts := &tokenServer{accepted: map[string]bool{}, status: http.StatusOK}
	for _, a := range accepted {
		ts.accepted[a] = true
	}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ts.mu.Lock()
		ts.headers = append(ts.headers, r.Header.Clone())
		ts.bodies = append(ts.bodies, string(body))
		ts.mu.Unlock()

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ts.accepted[token] {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(ts.status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) requests() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.headers)
}

func TestDispatcher_AttachesBearerAndRequestID(t *testing.T) {
	ts := newTokenServer(t, "A1")
	d := New(newStore(t, "A1", "R1"), &fakeRefresher{})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/employees/", nil)
	require.NoError(t, err)

	resp, err := d.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, 1, ts.requests())
	assert.Equal(t, "Bearer A1", ts.headers[0].Get("Authorization"))
	assert.NotEmpty(t, ts.headers[0].Get(HeaderRequestID))
	assert.Empty(t, req.Header.Get("Authorization"), "original request must not be modified")
}

func TestDispatcher_KeepsCallerRequestID(t *testing.T) {
	ts := newTokenServer(t, "A1")
	d := New(newStore(t, "A1", "R1"), &fakeRefresher{})

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	req.Header.Set(HeaderRequestID, "req-123")
	resp, err := d.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "req-123", ts.headers[0].Get(HeaderRequestID))
}

func TestDispatcher_SendsUnauthenticatedWithoutCredential(t *testing.T) {
	ts := newTokenServer(t, "")
	d := New(newStore(t, "", ""), &fakeRefresher{})

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	req.Header.Set("Authorization", "Bearer stale")
	resp, err := d.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, ts.headers[0].Get("Authorization"))
}

func TestDispatcher_RefreshesAndRetriesOnce(t *testing.T) {
	ts := newTokenServer(t, "A2")
	store := newStore(t, "A1", "R1")
	ref := &fakeRefresher{next: auth.Credential{AccessToken: "A2", RefreshToken: "R2"}, store: store}
	d := New(store, ref)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/payroll/", nil)
	resp, err := d.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), ref.calls.Load())
	assert.Equal(t, []string{"A1"}, ref.rejected)
	require.Equal(t, 2, ts.requests())
	assert.Equal(t, "Bearer A1", ts.headers[0].Get("Authorization"))
	assert.Equal(t, "Bearer A2", ts.headers[1].Get("Authorization"))
	assert.Equal(t, ts.headers[0].Get(HeaderRequestID), ts.headers[1].Get(HeaderRequestID), "retry keeps the request ID")
}

func TestDispatcher_SecondUnauthorizedIsTerminal(t *testing.T) {
	ts := newTokenServer(t) // accepts nothing
	ref := &fakeRefresher{next: auth.Credential{AccessToken: "A2", RefreshToken: "R2"}}
	d := New(newStore(t, "A1", "R1"), ref)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/employees/", nil)
	resp, err := d.Do(req)
	assert.Nil(t, resp)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr), "expected AuthError, got %v", err)
	assert.True(t, authErr.Retried)
	assert.True(t, errors.Is(err, ErrUnauthenticated))
	require.NotNil(t, authErr.Challenge)
	assert.True(t, authErr.Challenge.InvalidToken())

	assert.Equal(t, int32(1), ref.calls.Load(), "no second refresh")
	assert.Equal(t, 2, ts.requests(), "exactly one retry")
}

func TestDispatcher_RefreshFailureIsAuthError(t *testing.T) {
	ts := newTokenServer(t)
	refreshErr := errors.New("refresh endpoint said no")
	ref := &fakeRefresher{err: refreshErr}
	d := New(newStore(t, "A1", "R1"), ref)

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	_, err := d.Do(req)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.False(t, authErr.Retried)
	assert.ErrorIs(t, err, refreshErr)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, 1, ts.requests(), "no resend after failed refresh")
}

func TestDispatcher_ForbiddenIsNotRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"Not enough permissions"}`))
	}))
	defer srv.Close()

	ref := &fakeRefresher{}
	d := New(newStore(t, "A1", "R1"), ref)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/audit/?entity=employee", nil)
	_, err := d.Do(req)

	var fe *ForbiddenError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Not enough permissions", fe.Detail)
	assert.NotContains(t, fe.URL, "entity=")
	assert.False(t, errors.Is(err, ErrUnauthenticated))
	assert.Zero(t, ref.calls.Load())
}

func TestDispatcher_TransportErrorIsNotAuthError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ref := &fakeRefresher{}
	d := New(newStore(t, "A1", "R1"), ref)

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	_, err := d.Do(req)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.False(t, errors.Is(err, ErrUnauthenticated))
	assert.Zero(t, ref.calls.Load())
}

func TestDispatcher_OtherStatusesPassThrough(t *testing.T) {
	ts := newTokenServer(t, "A1")
	ts.status = http.StatusInternalServerError
	d := New(newStore(t, "A1", "R1"), &fakeRefresher{})

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	resp, err := d.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestDispatcher_ReplaysBodyWithoutGetBody(t *testing.T) {
	ts := newTokenServer(t, "A2")
	store := newStore(t, "A1", "R1")
	d := New(store, &fakeRefresher{next: auth.Credential{AccessToken: "A2", RefreshToken: "R2"}, store: store})

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/echo", nil)
	req.Body = io.NopCloser(strings.NewReader(`{"hours":38.5}`))
	req.GetBody = nil

	resp, err := d.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	echoed, _ := io.ReadAll(resp.Body)

	assert.Equal(t, `{"hours":38.5}`, string(echoed))
	require.Equal(t, 2, ts.requests())
	assert.Equal(t, ts.bodies[0], ts.bodies[1])
}

func TestDispatcher_ClientWrapsErrors(t *testing.T) {
	ts := newTokenServer(t)
	d := New(newStore(t, "A1", "R1"), &fakeRefresher{err: errors.New("boom")})

	resp, err := d.Client().Get(ts.URL)
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthenticated), "errors.Is must see through *url.Error")
}

func TestAuthError_Messages(t *testing.T) {
	assert.Contains(t, (&AuthError{Method: "GET", URL: "/x", Retried: true}).Error(), "still unauthorized")
	assert.Contains(t, (&AuthError{Method: "GET", URL: "/x", Cause: errors.New("nope")}).Error(), "nope")
	assert.Equal(t, "GET /x: unauthorized", (&AuthError{Method: "GET", URL: "/x"}).Error())
	assert.Equal(t, "GET /x: Forbidden", (&ForbiddenError{Method: "GET", URL: "/x"}).Error())
}
